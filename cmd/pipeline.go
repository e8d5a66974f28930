package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Download the resumes and screen them in one go",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyFlags(cmd, downloadFlags)
		applyFlags(cmd, screenFlags)

		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		e.logger.Info("stage started", zap.String("stage", "download"))
		downloaded, err := download(e)
		if err != nil {
			return fmt.Errorf("download stage: %w", err)
		}
		e.logger.Info("stage finished",
			zap.String("stage", "download"),
			zap.Int("succeeded", downloaded.Succeeded),
			zap.Bool("quota_reached", downloaded.QuotaReached),
		)

		e.logger.Info("stage started", zap.String("stage", "screen"))
		if _, err := screen(e, autoApprove(cmd), false); err != nil {
			return fmt.Errorf("screen stage: %w", err)
		}
		e.logger.Info("stage finished", zap.String("stage", "screen"))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	addDownloadFlags(pipelineCmd)
	addScreenFlags(pipelineCmd)
}
