package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/adapter/http/middleware"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/auth"
)

// options are the persistent flags shared by every command.
type options struct {
	baseURL string
	timeout time.Duration
	token   string
	owner   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "rentledger-cli",
		Short:         "RentLedger CLI tool",
		Long:          `A command line interface for settling utility costs through the RentLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("RENTLEDGER_URL", "http://localhost:8080"), "Base URL of the RentLedger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("RENTLEDGER_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&opts.owner, "owner", os.Getenv("RENTLEDGER_OWNER"), "Owner ID sent when the server runs without authentication")

	rootCmd.AddCommand(
		previewCmd(opts),
		settlementCmd(opts),
		meterCmd(opts),
		reconcileCmd(opts),
		tokenCmd(),
	)

	return rootCmd
}

func previewCmd(opts *options) *cobra.Command {
	var req dto.CalculationRequest

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Calculate a settlement without storing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/settlements/preview", req)
		},
	}
	periodFlags(cmd, &req)

	return cmd
}

func settlementCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlement",
		Short: "Settlement lifecycle operations",
	}

	var createReq dto.CalculationRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Calculate a period and store it as a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/settlements", createReq)
		},
	}
	periodFlags(createCmd, &createReq)

	var (
		limit  int
		offset int
	)
	listCmd := &cobra.Command{
		Use:   "list <property-id>",
		Short: "List settlements of a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("limit", fmt.Sprint(limit))
			query.Set("offset", fmt.Sprint(offset))
			path := "/api/v1/properties/" + url.PathEscape(args[0]) + "/settlements?" + query.Encode()
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodGet, path, nil)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	showCmd := &cobra.Command{
		Use:   "show <settlement-id>",
		Short: "Show a settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodGet, settlementPath(args[0], ""), nil)
		},
	}

	var adjustReq dto.AdjustShareRequest
	var amount string
	adjustCmd := &cobra.Command{
		Use:   "adjust <settlement-id> <share-id>",
		Short: "Override the amount of a share in a draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount != "" {
				adjustReq.AdjustedAmount = &amount
			}
			path := settlementPath(args[0], "/shares/"+url.PathEscape(args[1]))
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPatch, path, adjustReq)
		},
	}
	adjustCmd.Flags().StringVar(&amount, "amount", "", "Adjusted amount")
	adjustCmd.Flags().BoolVar(&adjustReq.Reset, "reset", false, "Drop a previous adjustment")

	recalculateCmd := &cobra.Command{
		Use:   "recalculate <settlement-id>",
		Short: "Recalculate a draft from current data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, settlementPath(args[0], "/recalculate"), nil)
		},
	}

	finalizeCmd := &cobra.Command{
		Use:   "finalize <settlement-id>",
		Short: "Finalize a draft and post tenant charges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, settlementPath(args[0], "/finalize"), nil)
		},
	}

	var voidReq dto.VoidSettlementRequest
	voidCmd := &cobra.Command{
		Use:   "void <settlement-id>",
		Short: "Void a finalized settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, settlementPath(args[0], "/void"), voidReq)
		},
	}
	voidCmd.Flags().StringVar(&voidReq.Reason, "reason", "", "Why the settlement is voided")
	_ = voidCmd.MarkFlagRequired("reason")

	postingsCmd := &cobra.Command{
		Use:   "postings <settlement-id>",
		Short: "List ledger postings of a settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodGet, settlementPath(args[0], "/postings"), nil)
		},
	}

	var out string
	exportCmd := &cobra.Command{
		Use:   "export <settlement-id>",
		Short: "Download a settlement as an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient(opts).do(http.MethodGet, settlementPath(args[0], "/export.xlsx"), nil)
			if err != nil {
				return err
			}
			if out == "" {
				out = "settlement-" + args[0] + ".xlsx"
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(body))
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&out, "output", "o", "", "Output file")

	cmd.AddCommand(createCmd, listCmd, showCmd, adjustCmd, recalculateCmd, finalizeCmd, voidCmd, postingsCmd, exportCmd)
	return cmd
}

func meterCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meter",
		Short: "Meter operations",
	}

	var readingReq dto.RecordReadingRequest
	readCmd := &cobra.Command{
		Use:   "read <meter-id>",
		Short: "Record a meter reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, meterPath(args[0], "/readings"), readingReq)
		},
	}
	readCmd.Flags().StringVar(&readingReq.Value, "value", "", "Meter value")
	readCmd.Flags().StringVar(&readingReq.Date, "date", "", "Reading date (YYYY-MM-DD)")
	_ = readCmd.MarkFlagRequired("value")
	_ = readCmd.MarkFlagRequired("date")

	var (
		exchangeReq dto.ExchangeMeterRequest
		price       string
	)
	exchangeCmd := &cobra.Command{
		Use:   "exchange <meter-id>",
		Short: "Replace a meter, recording its final and the new meter's initial reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if price != "" {
				exchangeReq.NewMeter.PricePerUnit = &price
			}
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodPost, meterPath(args[0], "/exchange"), exchangeReq)
		},
	}
	exchangeCmd.Flags().StringVar(&exchangeReq.ExchangeDate, "date", "", "Exchange date (YYYY-MM-DD)")
	exchangeCmd.Flags().StringVar(&exchangeReq.FinalReading, "final", "", "Final reading of the old meter")
	exchangeCmd.Flags().StringVar(&exchangeReq.InitialReading, "initial", "0", "Initial reading of the new meter")
	exchangeCmd.Flags().StringVar(&exchangeReq.NewMeter.Number, "number", "", "Number of the new meter")
	exchangeCmd.Flags().StringVar(&price, "price", "", "Price per unit of the new meter; defaults to the old meter's")
	exchangeCmd.Flags().StringVar(&exchangeReq.Notes, "notes", "", "Notes")
	_ = exchangeCmd.MarkFlagRequired("date")
	_ = exchangeCmd.MarkFlagRequired("final")
	_ = exchangeCmd.MarkFlagRequired("number")

	var from, to string
	usageCmd := &cobra.Command{
		Use:   "usage <meter-id>",
		Short: "Show consumption of a meter over a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("from", from)
			query.Set("to", to)
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodGet, meterPath(args[0], "/usage?"+query.Encode()), nil)
		},
	}
	usageCmd.Flags().StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	usageCmd.Flags().StringVar(&to, "to", "", "Period end, exclusive (YYYY-MM-DD)")
	_ = usageCmd.MarkFlagRequired("from")
	_ = usageCmd.MarkFlagRequired("to")

	cmd.AddCommand(readCmd, exchangeCmd, usageCmd)
	return cmd
}

func reconcileCmd(opts *options) *cobra.Command {
	var propertyID string

	cmd := &cobra.Command{
		Use:   "reconcile [settlement-id]",
		Short: "Check settlements against their ledger postings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			switch {
			case len(args) == 1:
				path = settlementPath(args[0], "/reconciliation")
			case propertyID != "":
				path = "/api/v1/properties/" + url.PathEscape(propertyID) + "/reconciliation"
			default:
				return fmt.Errorf("either a settlement id or --property is required")
			}
			return newClient(opts).call(cmd.OutOrStdout(), http.MethodGet, path, nil)
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "Check every settlement of a property")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret   string
		email    string
		validFor time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Issue a bearer token for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			token, err := auth.NewJWTManager(secret, validFor).Generate(domain.Owner{ID: args[0], Email: email})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().StringVar(&email, "email", "", "Owner email")
	cmd.Flags().DurationVar(&validFor, "valid-for", 24*time.Hour, "Token lifetime")

	return cmd
}

func periodFlags(cmd *cobra.Command, req *dto.CalculationRequest) {
	cmd.Flags().StringVar(&req.PropertyID, "property", "", "Property ID")
	cmd.Flags().StringVar(&req.StartDate, "from", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.EndDate, "to", "", "Period end, exclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Approach, "approach", string(domain.ApproachMonthly), "MONTHLY, QUARTERLY, YEARLY or CUSTOM")
	_ = cmd.MarkFlagRequired("property")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func settlementPath(id, suffix string) string {
	return "/api/v1/settlements/" + url.PathEscape(id) + suffix
}

func meterPath(id, suffix string) string {
	return "/api/v1/meters/" + url.PathEscape(id) + suffix
}

type client struct {
	opts *options
	http *http.Client
}

func newClient(opts *options) *client {
	return &client{opts: opts, http: &http.Client{Timeout: opts.timeout}}
}

// call sends the request and pretty-prints the JSON response to out.
func (c *client) call(out io.Writer, method, path string, payload any) error {
	body, err := c.do(method, path, payload)
	if err != nil {
		return err
	}
	return printJSON(out, body)
}

func (c *client) do(method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, strings.TrimRight(c.opts.baseURL, "/")+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.token)
	}
	if c.opts.owner != "" {
		req.Header.Set(middleware.OwnerHeader, c.opts.owner)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr dto.ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return nil, fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			}
			return nil, fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func printJSON(out io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = out.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
