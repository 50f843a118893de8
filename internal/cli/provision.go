package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/provision"
	"github.com/blackwell-systems/devstack/internal/service"
	"github.com/blackwell-systems/devstack/internal/stackfile"
)

var provisionCmd = &cobra.Command{
	Use:   "provision [family|service]",
	Short: "Provision a backing service for an application",
	Long: `Provision a backing service for the application in --path.

Families: cache, search, object-storage, queue, database. A service name
(redis, meilisearch, minio, rabbitmq, mysql, sqs) works too.

With --all, every service listed in the app's devstack.yaml is provisioned
in order. Failures to use containers never abort: the service falls back to
a local instance and the problem is reported as a warning.`,
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		path, _ := flags.GetString("path")
		appPath, err := resolvePath(path)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		o := a.orchestrator()

		var reqs []provision.Request
		if all, _ := flags.GetBool("all"); all {
			reqs, err = stackRequests(appPath)
		} else {
			reqs, err = flagRequest(cmd, args[0], appPath)
		}
		if err != nil {
			return err
		}

		configs := map[string]provision.NormalizedConfig{}
		for _, req := range reqs {
			color.Cyan("Provisioning %s for %s...", req.Descriptor.DisplayName, req.AppName)
			out, err := o.Provision(ctx, req)
			if err != nil {
				color.Red("✗ %s: %v", req.Descriptor.DisplayName, err)
				return err
			}
			configs[out.Service] = out.Config
			if len(out.Warnings) > 0 {
				color.Yellow("⚠ %s finished with %d warning(s)", req.Descriptor.DisplayName, len(out.Warnings))
			}
		}

		if asJSON, _ := flags.GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configs)
		}
		return nil
	},
}

// flagRequest builds a single request from the command line.
func flagRequest(cmd *cobra.Command, key, appPath string) ([]provision.Request, error) {
	d, err := service.Lookup(key)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	name, _ := flags.GetString("app")
	yes, _ := flags.GetBool("yes")
	no, _ := flags.GetBool("no")
	if yes && no {
		return nil, errors.New("--yes and --no are mutually exclusive")
	}

	req := provision.Request{
		AppName:    appName(name, appPath),
		AppPath:    appPath,
		Descriptor: d,
	}
	switch {
	case yes:
		req.UseContainer = boolPtr(true)
	case no:
		req.UseContainer = boolPtr(false)
	}
	req.Overrides.Port, _ = flags.GetInt("port")
	req.Overrides.Host, _ = flags.GetString("host")
	req.Overrides.Username, _ = flags.GetString("username")
	req.Overrides.Resource, _ = flags.GetString("resource")

	return []provision.Request{req}, nil
}

// stackRequests builds one request per stack file entry.
func stackRequests(appPath string) ([]provision.Request, error) {
	file, err := stackfile.Find(appPath)
	if err != nil {
		return nil, err
	}
	stack, err := stackfile.Load(file)
	if err != nil {
		return nil, err
	}
	if err := stack.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	ds, err := stack.Descriptors()
	if err != nil {
		return nil, err
	}

	reqs := make([]provision.Request, 0, len(ds))
	for i, e := range stack.Services {
		reqs = append(reqs, provision.Request{
			AppName:      stack.App,
			AppPath:      appPath,
			Descriptor:   ds[i],
			UseContainer: e.Container,
			Overrides: provision.Overrides{
				Port:     e.Port,
				Host:     e.Host,
				Username: e.Username,
				Resource: e.Resource,
			},
		})
	}
	return reqs, nil
}

func boolPtr(b bool) *bool { return &b }

func init() {
	flags := provisionCmd.Flags()
	flags.String("app", "", "Application name (default: directory name)")
	flags.String("path", ".", "Application directory holding the manifest")
	flags.BoolP("yes", "y", false, "Use a container without asking")
	flags.Bool("no", false, "Use a local instance without asking")
	flags.Int("port", 0, "Host port override for the primary port")
	flags.String("host", "", "Host of a developer-run instance")
	flags.String("username", "", "Username override")
	flags.String("resource", "", "Bucket, database or vhost name override")
	flags.Bool("all", false, "Provision every service in the app's stack file")
	flags.Bool("json", false, "Print the normalized configuration as JSON")
}
