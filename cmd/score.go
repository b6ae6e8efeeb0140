package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/matching"
	"github.com/pingjob/matcher/internal/profile"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an already structured resume against extracted job requirements, offline",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, _ := setup()

		resumeFile, _ := cmd.Flags().GetString("parsed-resume")
		requirementsFile, _ := cmd.Flags().GetString("requirements")

		if err := scoreFiles(cmd.OutOrStdout(), resumeFile, requirementsFile); err != nil {
			logger.Fatal("scoring", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("parsed-resume", "", "JSON file produced by parse-resume")
	scoreCmd.Flags().String("requirements", "", "JSON file with one job's requirements")
	scoreCmd.MarkFlagRequired("parsed-resume")
	scoreCmd.MarkFlagRequired("requirements")
}

func scoreFiles(w io.Writer, resumeFile, requirementsFile string) error {
	resumeData, err := readObject(resumeFile)
	if err != nil {
		return err
	}

	resume, err := profile.DecodeResume(resumeData)
	if err != nil {
		return fmt.Errorf("decode resume %q: %w", resumeFile, err)
	}

	reqData, err := readObject(requirementsFile)
	if err != nil {
		return err
	}

	reqs, _, err := profile.DecodeJobRequirements(reqData, "")
	if err != nil {
		return fmt.Errorf("decode requirements %q: %w", requirementsFile, err)
	}

	return printJSON(w, matching.CalculateMatchingScore(resume, reqs))
}

func readObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}

	return obj, nil
}
