// Package commands implements the CLI subcommands next to serve.
package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"seattle-events/internal/config"
	"seattle-events/internal/migrate"
)

const migrateUsage = `Usage: seattle-events migrate <up|down|version|goto N>

Applies the embedded schema and seed migrations for DB_DRIVER.
`

// Migrate handles the migrate subcommand.
func Migrate(args []string, cfg config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, migrateUsage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Driver == config.DriverSnowflake {
		return fmt.Errorf("migrations are not supported for driver %q", cfg.Driver)
	}

	rest := fs.Args()
	action := "up"
	if len(rest) > 0 {
		action = rest[0]
	}

	switch action {
	case "up":
		if err := migrate.Up(cfg); err != nil {
			return err
		}
	case "down":
		if err := migrate.Down(cfg); err != nil {
			return err
		}
	case "goto":
		if len(rest) != 2 {
			return errors.New("goto requires a version")
		}
		v, err := strconv.ParseUint(rest[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", rest[1], err)
		}
		if err := migrate.To(cfg, uint(v)); err != nil {
			return err
		}
	case "version":
	default:
		fs.Usage()
		return fmt.Errorf("unknown migrate action %q", action)
	}

	version, dirty, ok, err := migrate.Version(cfg)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "no migrations applied")
		return nil
	}
	if dirty {
		fmt.Fprintf(out, "version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "version %d\n", version)
	return nil
}
