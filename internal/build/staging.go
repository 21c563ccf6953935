package build

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// beginStaging creates an empty sibling staging directory: <site_dir>_stage.
func (g *Generator) beginStaging() error {
	stage := g.outputDir + "_stage"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	g.stageDir = stage
	g.logger.Debug("Initialized staging directory", logfields.Path(stage), logfields.Output(g.outputDir))
	return nil
}

// finalizeStaging promotes the staging directory to the output location.
//  1. Move the existing output to <site_dir>.prev.
//  2. Rename staging to the output directory.
//  3. Remove the backup.
func (g *Generator) finalizeStaging() error {
	if g.stageDir == "" {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(g.stageDir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}
	prev := g.outputDir + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		g.logger.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	if _, err := os.Stat(g.outputDir); err == nil {
		if err := os.Rename(g.outputDir, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
	}
	if err := os.Rename(g.stageDir, g.outputDir); err != nil {
		if _, statErr := os.Stat(prev); statErr == nil {
			_ = os.Rename(prev, g.outputDir)
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	g.stageDir = ""
	if err := os.RemoveAll(prev); err != nil {
		g.logger.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	g.logger.Debug("Promoted staging directory", logfields.Output(g.outputDir))
	return nil
}

// abortStaging removes the staging directory after a failed build. The
// previous output is left untouched.
func (g *Generator) abortStaging() {
	if g.stageDir == "" {
		return
	}
	if err := os.RemoveAll(g.stageDir); err != nil {
		g.logger.Warn("Failed to remove staging directory", logfields.Path(g.stageDir), logfields.Error(err))
	}
	g.stageDir = ""
}
