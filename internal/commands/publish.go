package commands

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"seattle-events/internal/config"
	"seattle-events/internal/db"
	"seattle-events/internal/ingest"
	"seattle-events/internal/modules/events/repository"
	"seattle-events/internal/mqtt"
)

const connectTimeout = 10 * time.Second

// Publish handles the publish subcommand: every record in the file, or every
// stored row with -from-db, is sent to MQTT_TOPIC as a CloudEvent.
func Publish(ctx context.Context, args []string, cfg config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(out)
	file := fs.String("file", "", "JSON array of event records")
	fromDB := fs.Bool("from-db", false, "publish the rows of the configured database")
	source := fs.String("source", ingest.DefaultSource, "CloudEvents source attribute")
	dryRun := fs.Bool("dry-run", false, "print the encoded messages instead of publishing")
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: seattle-events publish (-file events.json | -from-db) [OPTIONS]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*file == "") == !*fromDB {
		fs.Usage()
		return errors.New("exactly one of -file or -from-db is required")
	}

	var records []ingest.Record
	var err error
	if *fromDB {
		records, err = loadStoredRecords(ctx, cfg)
	} else {
		records, err = loadRecords(*file)
	}
	if err != nil {
		return err
	}
	payloads, err := encodeRecords(records, *source)
	if err != nil {
		return err
	}

	if *dryRun {
		for _, p := range payloads {
			fmt.Fprintln(out, string(p))
		}
		return nil
	}

	pub := mqtt.NewPublisher(cfg, slog.Default())
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	err = pub.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer pub.Disconnect()

	for i, p := range payloads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := pub.Publish(p); err != nil {
			return fmt.Errorf("publish record %d: %w", records[i].ID, err)
		}
	}
	fmt.Fprintf(out, "published %d events to %s\n", len(payloads), cfg.MQTTTopic)
	return nil
}

func loadRecords(path string) ([]ingest.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []ingest.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s contains no records", path)
	}
	return records, nil
}

func loadStoredRecords(ctx context.Context, cfg config.Config) ([]ingest.Record, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			slog.Error("db close", "error", err)
		}
	}()

	events, err := repository.NewRepository(conn, cfg.Driver).ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events stored in %s database", cfg.Driver)
	}
	records := make([]ingest.Record, 0, len(events))
	for _, ev := range events {
		records = append(records, ingest.FromEvent(ev))
	}
	return records, nil
}

// encodeRecords validates all records up front so a bad file publishes
// nothing.
func encodeRecords(records []ingest.Record, source string) ([][]byte, error) {
	out := make([][]byte, 0, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		p, err := ingest.Encode(rec, source)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
