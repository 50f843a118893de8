package bootstrap

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blackwell-systems/devstack/internal/docker"
)

// Database creates a database and an owning user with the mysql client as
// root. Statements run in order and the first failure aborts; nothing is
// rolled back since every statement is safe to repeat.
type Database struct {
	Exec docker.Executor
}

var identifier = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

func (d *Database) Ensure(ctx context.Context, t Target, spec ResourceSpec, creds map[string]string) (Result, error) {
	db, user := spec.Name, spec.Username
	for _, id := range []string{db, user} {
		if !identifier.MatchString(id) {
			return Result{}, &BootstrapError{Resource: db, Step: "validate", Err: fmt.Errorf("invalid identifier %q", id)}
		}
	}

	root := creds["root_password"]
	run := func(stmt string) (docker.Result, error) {
		return d.Exec.Exec(ctx, t.Manifest, t.Service, "mysql", "-uroot", "-p"+root, "-N", "-B", "-e", stmt)
	}

	probe := fmt.Sprintf("SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = '%s'", db)
	res, err := run(probe)
	if err != nil {
		return Result{}, d.fail(t, db, "check database", res, err)
	}
	existed := strings.TrimSpace(res.Stdout) != ""

	pw := quote(spec.Password)
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", db),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'localhost' IDENTIFIED BY %s", user, pw),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY %s", user, pw),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'localhost'", db, user),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'%%'", db, user),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range stmts {
		if res, err := run(stmt); err != nil {
			return Result{}, d.fail(t, db, firstWords(stmt, 3), res, err)
		}
	}

	return Result{Created: !existed, AlreadyExisted: existed, Resource: db}, nil
}

func (d *Database) fail(t Target, db, step string, res docker.Result, err error) error {
	return &BootstrapError{
		Resource:    db,
		Step:        strings.ToLower(step),
		Output:      res.Output(),
		Remediation: remediation(t, "mysql", "-uroot", "-p"),
		Err:         err,
	}
}

// quote renders a MySQL string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
