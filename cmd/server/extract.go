package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/core/imaging"
	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/core/processor"
	"luminaria-extractor/internal/db"
	"luminaria-extractor/internal/db/repository"
	"luminaria-extractor/internal/integrations/roboflow"
	"luminaria-extractor/internal/storage/blob"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func extractCommand(cfg func() *config.Config) *cobra.Command {
	var single bool

	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Process local photos in groups and print the records as JSON",
		Long: `Process local photos without starting the HTTP API. Files are grouped in
the given order: three photos per street light, or one with --single.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := 3
			if single {
				size = 1
			}
			return extract(cmd.Context(), cfg(), args, size, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&single, "single", false, "Treat every photo as its own street light")
	return cmd
}

func extract(ctx context.Context, cfg *config.Config, files []string, size int, out io.Writer) error {
	if len(files)%size != 0 {
		return fmt.Errorf("%d files cannot be split into groups of %d", len(files), size)
	}

	work, err := os.MkdirTemp("", "luminaria-extract-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(work)

	conn, err := db.Open(filepath.Join(work, "extract.db"))
	if err != nil {
		return err
	}
	if sqlDB, err := conn.DB(); err == nil {
		defer sqlDB.Close()
	}
	blobs, err := blob.NewFileStore(filepath.Join(work, "images"))
	if err != nil {
		return err
	}

	proc := processor.NewImageProcessor(cfg, repository.NewSQLiteRepository(conn), blobs,
		roboflow.NewClient(cfg.Inference, nil), imaging.NewCompressor(cfg.Imaging),
		nil, nil, nil)
	defer proc.Shutdown()

	uploads := make([]processor.Upload, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		uploads = append(uploads, processor.Upload{
			FileName:    filepath.Base(file),
			ContentType: http.DetectContentType(data),
			Data:        data,
		})
	}
	if _, err := proc.AddImages(ctx, uploads); err != nil {
		return err
	}

	luminarias := make([]models.Luminaria, 0, len(files)/size)
	for i := 0; i < len(files)/size; i++ {
		l, err := proc.RunLote(ctx, size)
		if err != nil {
			return fmt.Errorf("group %d: %w", i+1, err)
		}
		log.Infof("Group %d: %s", i+1, l.Coincidencia)
		luminarias = append(luminarias, *l)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(luminarias)
}
