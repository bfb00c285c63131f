package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smallbiznis/detailflow/pkg/uploader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type intakeOptions struct {
	server    string
	org       string
	photos    []string
	minPhotos int
	maxPhotos int
	timeout   time.Duration
	form      uploader.IntakeRequest
}

var intakeOpts intakeOptions

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Public intake flow against a running API",
}

var intakeSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Upload photos and submit an intake form",
	RunE:  runIntakeSubmit,
}

func runIntakeSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if intakeOpts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, intakeOpts.timeout)
		defer cancel()
	}

	log, err := cliLogger(logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client, err := uploader.New(intakeOpts.server, intakeOpts.org,
		uploader.WithMaxPhotos(intakeOpts.maxPhotos),
		uploader.WithMinPhotos(intakeOpts.minPhotos),
		uploader.WithLogger(log),
	)
	if err != nil {
		return err
	}

	files := make([]uploader.File, 0, len(intakeOpts.photos))
	for _, path := range intakeOpts.photos {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, uploader.File{Name: filepath.Base(path), Data: data})
	}

	out := cmd.OutOrStdout()
	accepted := client.Add(ctx, files...)
	if skipped := len(files) - len(accepted); skipped > 0 {
		fmt.Fprintf(out, "skipped %d file(s): unsupported type, too large, or over the photo limit\n", skipped)
	}
	client.Wait()

	var failed []error
	for _, p := range client.Photos() {
		switch p.Status {
		case uploader.StatusDone:
			fmt.Fprintf(out, "uploaded %s -> %s\n", p.Name, p.Key)
		case uploader.StatusError:
			fmt.Fprintf(out, "failed   %s: %v\n", p.Name, p.Err)
			failed = append(failed, p.Err)
		}
	}
	if len(failed) > 0 && len(client.DoneKeys()) == 0 {
		return fmt.Errorf("no photos uploaded: %w", errors.Join(failed...))
	}
	if client.BelowMinimum() {
		fmt.Fprintf(out, "warning: only %d photo(s) uploaded, %d recommended\n", len(client.DoneKeys()), intakeOpts.minPhotos)
	}

	res, err := client.SubmitIntake(ctx, intakeOpts.form)
	if err != nil {
		return fmt.Errorf("submit intake: %w", err)
	}
	_, err = fmt.Fprintf(out, "job created: %s\n", res.JobID)
	return err
}

func cliLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func init() {
	rootCmd.AddCommand(intakeCmd)
	intakeCmd.AddCommand(intakeSubmitCmd)

	f := intakeSubmitCmd.Flags()
	f.StringVar(&intakeOpts.server, "server", "http://localhost:8080", "API base URL")
	f.StringVar(&intakeOpts.org, "org", "", "Organization slug")
	f.StringSliceVar(&intakeOpts.photos, "photo", nil, "Photo file path (repeatable)")
	f.IntVar(&intakeOpts.minPhotos, "min-photos", 3, "Warn when fewer photos upload")
	f.IntVar(&intakeOpts.maxPhotos, "max-photos", uploader.DefaultMaxPhotos, "Maximum photos to upload (0 for no limit)")
	f.DurationVar(&intakeOpts.timeout, "timeout", 5*time.Minute, "Overall timeout")

	f.StringVar(&intakeOpts.form.FirstName, "first", "", "Customer first name")
	f.StringVar(&intakeOpts.form.LastName, "last", "", "Customer last name")
	f.StringVar(&intakeOpts.form.Email, "email", "", "Customer email")
	f.StringVar(&intakeOpts.form.Phone, "phone", "", "Customer phone")
	f.IntVar(&intakeOpts.form.VehicleYear, "year", 0, "Vehicle year")
	f.StringVar(&intakeOpts.form.VehicleMake, "make", "", "Vehicle make")
	f.StringVar(&intakeOpts.form.VehicleModel, "model", "", "Vehicle model")
	f.StringVar(&intakeOpts.form.VehicleColor, "color", "", "Vehicle color")
	f.StringVar(&intakeOpts.form.Notes, "notes", "", "Customer notes")

	_ = intakeSubmitCmd.MarkFlagRequired("org")
	_ = intakeSubmitCmd.MarkFlagRequired("photo")
}
