package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tournevent/dpd/internal/server"
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/client"
	"go.uber.org/zap"
)

// packagesFile is the input of generate, ship and batch.
type packagesFile struct {
	Packages []dpd.Package `json:"packages"`
}

// run opens the app, runs fn and closes the app.
func run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(cmd.Context()))
		return fn(cmd.Context(), a, args)
	}
}

func labelFlags(cmd *cobra.Command, opts *dpd.LabelOptions) {
	cmd.Flags().StringVar((*string)(&opts.Format), "format", "", "label format: PDF, ZPL or EPL (default PDF)")
	cmd.Flags().StringVar((*string)(&opts.PageFormat), "page", "", "page format: A4, A6 or LBL (default A4)")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "label variant (default BIC3)")
}

// writeDocument writes base64 data decoded to path, or prints it when path
// is empty.
func writeDocument(path string, v any, data string) error {
	if path == "" {
		return printJSON(os.Stdout, v)
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	fmt.Fprintf(os.Stdout, "wrote %d bytes to %s\n", len(raw), path)
	return nil
}

func newGenerateCmd() *cobra.Command {
	var file string
	var international bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Register packages and print their waybills",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			var in packagesFile
			if err := readInput(file, &in); err != nil {
				return err
			}
			generate := a.client.Domestic.GeneratePackageNumbers
			if international {
				generate = a.client.International.GeneratePackageNumbers
			}
			res, err := generate(ctx, in.Packages)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "packages YAML file, - for stdin")
	cmd.Flags().BoolVar(&international, "international", false, "use the international procedure")
	return cmd
}

func newLabelCmd() *cobra.Command {
	var opts dpd.LabelOptions
	var out string
	cmd := &cobra.Command{
		Use:   "label WAYBILL...",
		Short: "Render labels for waybills",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			label, err := a.client.Domestic.GenerateLabels(ctx, args, opts)
			if err != nil {
				return err
			}
			return writeDocument(out, label, label.Data)
		}),
	}
	labelFlags(cmd, &opts)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the decoded label to this file")
	return cmd
}

func newProtocolCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "protocol WAYBILL...",
		Short: "Generate the handover protocol for waybills",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			p, err := a.client.Domestic.GenerateProtocol(ctx, args)
			if err != nil {
				return err
			}
			return writeDocument(out, p, p.Data)
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the decoded protocol to this file")
	return cmd
}

func newPickupCmd() *cobra.Command {
	var date, from, to string
	cmd := &cobra.Command{
		Use:   "pickup [WAYBILL...]",
		Short: "Order a courier pickup",
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			day := time.Now().AddDate(0, 0, 1)
			if date != "" {
				var err error
				if day, err = time.Parse(time.DateOnly, date); err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}
			pickup, err := a.client.CreatePickup(ctx, day, from, to, args)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, pickup)
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "pickup date YYYY-MM-DD (default tomorrow)")
	cmd.Flags().StringVar(&from, "from", "10:00", "earliest pickup time HH:MM")
	cmd.Flags().StringVar(&to, "to", "16:00", "latest pickup time HH:MM")
	return cmd
}

func newTrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track WAYBILL",
		Short: "Show the tracking state of a waybill",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			status, url, err := a.client.Track(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, struct {
				*dpd.ParcelStatus
				TrackingURL string `json:"trackingUrl"`
			}{status, url})
		}),
	}
}

func newPostcodeCmd() *cobra.Command {
	var country string
	cmd := &cobra.Command{
		Use:   "postcode POSTCODE",
		Short: "Look up a postcode",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			info, err := a.client.Tracking.GetPostcodeInfo(ctx, args[0], country)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, info)
		}),
	}
	cmd.Flags().StringVar(&country, "country", "PL", "ISO country code")
	return cmd
}

func newPUDOCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pudo",
		Short: "Search DPD pickup points",
	}

	var q dpd.ParcelShopQuery
	var hideClosed bool
	find := &cobra.Command{
		Use:   "find",
		Short: "Find parcel shops",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			if hideClosed {
				q.HideClosed = &hideClosed
			}
			shops, err := a.client.PUDO.FindParcelShops(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, shops)
		}),
	}
	f := find.Flags()
	f.StringVar(&q.CountryCode, "country", "PL", "ISO country code")
	f.StringVar(&q.City, "city", "", "city")
	f.StringVar(&q.PostalCode, "postal", "", "postal code")
	f.StringVar(&q.Address, "address", "", "street address")
	f.IntVar(&q.Limit, "limit", 10, "maximum number of results")
	f.StringSliceVar(&q.Services, "service", nil, "required services")
	f.BoolVar(&hideClosed, "hide-closed", false, "skip closed parcel shops")
	f.Float64Var(&q.Latitude, "lat", 0, "latitude")
	f.Float64Var(&q.Longitude, "lng", 0, "longitude")
	f.Float64Var(&q.Radius, "radius", 0, "search radius in km")

	get := &cobra.Command{
		Use:   "get PUDO_ID",
		Short: "Show one parcel shop",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			shop, err := a.client.PUDO.GetParcelShop(ctx, args[0])
			if err != nil {
				return err
			}
			if shop == nil {
				return fmt.Errorf("parcel shop %s not found", args[0])
			}
			return printJSON(os.Stdout, shop)
		}),
	}

	cmd.AddCommand(find, get)
	return cmd
}

func newReturnCmd() *cobra.Command {
	var opts dpd.LabelOptions
	var receiverFile, out string
	var international bool
	cmd := &cobra.Command{
		Use:   "return WAYBILL...",
		Short: "Issue a return label",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			var receiver dpd.Address
			if err := readInput(receiverFile, &receiver); err != nil {
				return err
			}
			generate := a.client.Returns.GenerateDomesticReturnLabel
			if international {
				generate = a.client.Returns.GenerateInternationalReturnLabel
			}
			label, err := generate(ctx, args, receiver, opts)
			if err != nil {
				return err
			}
			return writeDocument(out, label, label.Data)
		}),
	}
	labelFlags(cmd, &opts)
	cmd.Flags().StringVarP(&receiverFile, "receiver", "r", "-", "receiver address YAML file, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the decoded label to this file")
	cmd.Flags().BoolVar(&international, "international", false, "use the international procedure")
	return cmd
}

func newShipCmd() *cobra.Command {
	var opts dpd.LabelOptions
	var file string
	cmd := &cobra.Command{
		Use:   "ship",
		Short: "Register one package and render its label",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			var in packagesFile
			if err := readInput(file, &in); err != nil {
				return err
			}
			if len(in.Packages) != 1 {
				return fmt.Errorf("ship expects exactly one package, got %d", len(in.Packages))
			}
			label, err := a.client.CreateLabel(ctx, in.Packages[0], opts)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, label)
		}),
	}
	labelFlags(cmd, &opts)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "packages YAML file, - for stdin")
	return cmd
}

type batchItem struct {
	Index int                `json:"index"`
	Label *dpd.ShipmentLabel `json:"label,omitempty"`
	Error string             `json:"error,omitempty"`
}

func newBatchCmd() *cobra.Command {
	var opts dpd.LabelOptions
	var file, metricsAddr string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Register packages and render their labels concurrently",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			var in packagesFile
			if err := readInput(file, &in); err != nil {
				return err
			}

			if metricsAddr != "" {
				srvCtx, stop := context.WithCancel(ctx)
				defer stop()
				srv := server.New(server.Config{Addr: metricsAddr}, a.registry, a.client.Initialized, a.logger)
				go func() {
					if err := srv.Run(srvCtx); err != nil {
						a.logger.Error("Metrics server failed", zap.Error(err))
					}
				}()
			}

			results := a.client.CreateLabelsBatch(ctx, in.Packages, opts, concurrency)
			items := make([]batchItem, len(results))
			failed := 0
			for i, r := range results {
				items[i] = batchItem{Index: r.Index, Label: r.Label}
				if r.Err != nil {
					items[i].Error = r.Err.Error()
					failed++
				}
			}
			if err := printJSON(os.Stdout, items); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d packages failed", failed, len(results))
			}
			return nil
		}),
	}
	labelFlags(cmd, &opts)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "packages YAML file, - for stdin")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", client.DefaultBatchConcurrency, "packages processed in parallel")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the batch runs")
	return cmd
}

func newProceduresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "procedures",
		Short: "Check that DPD exposes every procedure the client calls",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			checks, err := a.client.Procedures()
			if err != nil {
				return err
			}
			for _, c := range checks {
				mark := "ok"
				if !c.Available {
					mark = "MISSING"
				}
				fmt.Fprintf(os.Stdout, "%-8s %-12s %s\n", mark, c.Service, c.Name)
			}
			if missing := client.Missing(checks); len(missing) > 0 {
				return fmt.Errorf("%d procedures missing: %v", len(missing), missing)
			}
			return nil
		}),
	}
}

func init() {
	rootCmd.AddCommand(
		newGenerateCmd(),
		newLabelCmd(),
		newProtocolCmd(),
		newPickupCmd(),
		newTrackCmd(),
		newPostcodeCmd(),
		newPUDOCmd(),
		newReturnCmd(),
		newShipCmd(),
		newBatchCmd(),
		newProceduresCmd(),
	)
}
