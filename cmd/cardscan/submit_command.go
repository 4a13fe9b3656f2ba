package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var condition string
	var foil bool
	var setCode string

	cmd := &cobra.Command{
		Use:   "submit <image>...",
		Short: "Queue card scans for recognition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					storedPath, err := copyIntoUploads(cfg, arg)
					if err != nil {
						return err
					}
					job, err := store.Enqueue(cmd.Context(), queue.NewJob{
						FilePath:     storedPath,
						OriginalName: filepath.Base(arg),
						Condition:    condition,
						Foil:         foil,
						SetCodeHint:  setCode,
					})
					if err != nil {
						_ = os.Remove(storedPath)
						return fmt.Errorf("enqueue %s: %w", arg, err)
					}
					fmt.Fprintf(out, "Queued %s as job %d\n", filepath.Base(arg), job.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&condition, "condition", "NM", "Card condition recorded on ingest")
	cmd.Flags().BoolVar(&foil, "foil", false, "Mark the scans as foil copies")
	cmd.Flags().StringVar(&setCode, "set", "", "Set code hint for printing resolution")
	return cmd
}

// copyIntoUploads stores the scan under the upload directory so the
// worker owns (and later deletes) its own copy.
func copyIntoUploads(cfg *config.Config, sourcePath string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open scan %s: %w", sourcePath, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = ".png"
	}
	target := filepath.Join(cfg.Paths.UploadDir, uuid.NewString()+ext)
	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("copy scan: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("close upload copy: %w", err)
	}
	return target, nil
}
