package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/stackfile"
)

var initCmd = &cobra.Command{
	Use:   "init [family|service...]",
	Short: "Write a stack file for an application",
	Long: `Write devstack.yaml in the app directory listing the given services, so
'devstack provision --all' can provision them. Use --json for devstack.json.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		path, _ := flags.GetString("path")
		appPath, err := resolvePath(path)
		if err != nil {
			return err
		}
		name, _ := flags.GetString("app")
		asJSON, _ := flags.GetBool("json")
		force, _ := flags.GetBool("force")

		file, err := writeStack(appPath, appName(name, appPath), args, asJSON, force)
		if err != nil {
			color.Red("✗ %v", err)
			return err
		}
		color.Green("✓ Wrote %s", file)
		color.Cyan("\nRun 'devstack provision --all --path %s' to provision it", path)
		return nil
	},
}

// writeStack validates and saves a stack file listing services. An existing
// stack file is kept unless force is set.
func writeStack(appPath, app string, services []string, asJSON, force bool) (string, error) {
	if existing, err := stackfile.Find(appPath); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to replace it)", existing)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	stack := &stackfile.Stack{App: app}
	for _, s := range services {
		stack.Services = append(stack.Services, stackfile.Entry{Service: s})
	}
	if err := stack.Validate(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(appPath, 0o755); err != nil {
		return "", fmt.Errorf("create app directory: %w", err)
	}
	name := stackfile.DefaultNames[0]
	if asJSON {
		name = "devstack.json"
	}
	file := filepath.Join(appPath, name)
	if err := stackfile.Save(stack, file); err != nil {
		return "", err
	}
	return file, nil
}

func init() {
	addAppFlags(initCmd)
	initCmd.Flags().Bool("json", false, "Write devstack.json instead of devstack.yaml")
	initCmd.Flags().Bool("force", false, "Replace an existing stack file")
}
