package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	appintegration "github.com/erp/storesync/internal/application/integration"
	reportapp "github.com/erp/storesync/internal/application/report"
	"github.com/erp/storesync/internal/domain/integration"
)

// Output formats
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// Printer renders API payloads as tables or YAML documents.
type Printer struct {
	Format string
	Writer io.Writer
}

// NewPrinter creates a printer for the given format
func NewPrinter(format string, w io.Writer) *Printer {
	return &Printer{Format: format, Writer: w}
}

type jobAcceptedView struct {
	JobID   string `yaml:"jobId"`
	StoreID string `yaml:"storeId"`
	Status  string `yaml:"status"`
}

type recordErrorView struct {
	EntityType string `yaml:"entityType"`
	LocalID    string `yaml:"localId,omitempty"`
	RemoteID   string `yaml:"remoteId,omitempty"`
	Message    string `yaml:"message"`
	Retryable  bool   `yaml:"retryable"`
}

type jobView struct {
	JobID          string            `yaml:"jobId"`
	StoreID        string            `yaml:"storeId"`
	OrganizationID string            `yaml:"organizationId"`
	Direction      string            `yaml:"direction"`
	RequestedBy    string            `yaml:"requestedBy"`
	Status         string            `yaml:"status"`
	Total          int               `yaml:"total"`
	Succeeded      int               `yaml:"succeeded"`
	Failed         int               `yaml:"failed"`
	Deferred       int               `yaml:"deferred"`
	StartedAt      string            `yaml:"startedAt"`
	FinishedAt     string            `yaml:"finishedAt,omitempty"`
	PhaseErrors    []string          `yaml:"phaseErrors,omitempty"`
	Errors         []recordErrorView `yaml:"errors,omitempty"`
}

type syncResultView struct {
	EntityType   string `yaml:"entityType"`
	LocalID      string `yaml:"localId"`
	Status       string `yaml:"status"`
	RemoteID     string `yaml:"remoteId,omitempty"`
	Error        string `yaml:"error,omitempty"`
	Retryable    bool   `yaml:"retryable"`
	Deferred     bool   `yaml:"deferred"`
	LastSyncedAt string `yaml:"lastSyncedAt,omitempty"`
}

type breakdownView struct {
	Currency     string `yaml:"currency"`
	OriginalSum  string `yaml:"originalSum"`
	ConvertedSum string `yaml:"convertedSum"`
	Rate         string `yaml:"rate,omitempty"`
	Orders       int    `yaml:"orders"`
	Converted    bool   `yaml:"converted"`
	Note         string `yaml:"note,omitempty"`
}

type revenueView struct {
	OrganizationID    string          `yaml:"organizationId"`
	Currency          string          `yaml:"currency"`
	Total             string          `yaml:"total"`
	Orders            int             `yaml:"orders"`
	Degraded          bool            `yaml:"degraded"`
	MissingCurrencies []string        `yaml:"missingCurrencies,omitempty"`
	From              string          `yaml:"from,omitempty"`
	To                string          `yaml:"to,omitempty"`
	GeneratedAt       string          `yaml:"generatedAt"`
	Breakdown         []breakdownView `yaml:"breakdown,omitempty"`
}

// JobAccepted prints the acknowledgement of a queued job
func (p *Printer) JobAccepted(jobID, storeID uuid.UUID) error {
	v := jobAcceptedView{JobID: jobID.String(), StoreID: storeID.String(), Status: string(integration.JobStatusQueued)}
	if p.Format == FormatYAML {
		return p.yaml(v)
	}
	return p.keyValues([][]string{
		{"Job", v.JobID},
		{"Store", v.StoreID},
		{"Status", v.Status},
	})
}

// Job prints one job summary with its record errors
func (p *Printer) Job(s integration.SyncSummary) error {
	v := toJobView(s)
	if p.Format == FormatYAML {
		return p.yaml(v)
	}

	rows := [][]string{
		{"Job", v.JobID},
		{"Store", v.StoreID},
		{"Organization", v.OrganizationID},
		{"Direction", v.Direction},
		{"Requested by", v.RequestedBy},
		{"Status", v.Status},
		{"Total", strconv.Itoa(v.Total)},
		{"Succeeded", strconv.Itoa(v.Succeeded)},
		{"Failed", strconv.Itoa(v.Failed)},
		{"Deferred", strconv.Itoa(v.Deferred)},
		{"Started", v.StartedAt},
		{"Finished", dash(v.FinishedAt)},
	}
	for _, pe := range v.PhaseErrors {
		rows = append(rows, []string{"Phase error", pe})
	}
	if err := p.keyValues(rows); err != nil {
		return err
	}
	if len(v.Errors) == 0 {
		return nil
	}

	fmt.Fprintln(p.Writer)
	table := tablewriter.NewWriter(p.Writer)
	table.Header("Entity", "Local ID", "Remote ID", "Retryable", "Message")
	for _, e := range v.Errors {
		if err := table.Append(e.EntityType, dash(e.LocalID), dash(e.RemoteID), strconv.FormatBool(e.Retryable), e.Message); err != nil {
			return err
		}
	}
	return table.Render()
}

// Jobs prints a list of job summaries
func (p *Printer) Jobs(list []integration.SyncSummary) error {
	views := make([]jobView, 0, len(list))
	for _, s := range list {
		views = append(views, toJobView(s))
	}
	if p.Format == FormatYAML {
		return p.yaml(views)
	}

	table := tablewriter.NewWriter(p.Writer)
	table.Header("Job", "Store", "Direction", "Status", "Total", "Succeeded", "Failed", "Started")
	for _, v := range views {
		if err := table.Append(v.JobID, v.StoreID, v.Direction, v.Status,
			strconv.Itoa(v.Total), strconv.Itoa(v.Succeeded), strconv.Itoa(v.Failed), v.StartedAt); err != nil {
			return err
		}
	}
	return table.Render()
}

// SyncResult prints the outcome of a single record retry
func (p *Printer) SyncResult(entityType integration.EntityType, localID uuid.UUID, r appintegration.SyncResult) error {
	v := syncResultView{
		EntityType:   string(entityType),
		LocalID:      localID.String(),
		Status:       string(r.Status),
		RemoteID:     r.RemoteID,
		Error:        r.Error,
		Retryable:    r.Retryable,
		Deferred:     r.Deferred,
		LastSyncedAt: formatTimePtr(r.LastSyncedAt),
	}
	if p.Format == FormatYAML {
		return p.yaml(v)
	}
	return p.keyValues([][]string{
		{"Entity", v.EntityType},
		{"Local ID", v.LocalID},
		{"Status", v.Status},
		{"Remote ID", dash(v.RemoteID)},
		{"Last synced", dash(v.LastSyncedAt)},
		{"Deferred", strconv.FormatBool(v.Deferred)},
		{"Retryable", strconv.FormatBool(v.Retryable)},
		{"Error", dash(v.Error)},
	})
}

// Revenue prints a revenue report, one breakdown row per source currency
func (p *Printer) Revenue(r reportapp.RevenueResponse) error {
	v := toRevenueView(r)
	if p.Format == FormatYAML {
		return p.yaml(v)
	}

	period := dash(v.From) + " .. " + dash(v.To)
	if err := p.keyValues([][]string{
		{"Organization", v.OrganizationID},
		{"Currency", v.Currency},
		{"Total", v.Total},
		{"Orders", strconv.Itoa(v.Orders)},
		{"Period", period},
		{"Degraded", strconv.FormatBool(v.Degraded)},
		{"Generated", v.GeneratedAt},
	}); err != nil {
		return err
	}
	if len(v.Breakdown) == 0 {
		return nil
	}

	fmt.Fprintln(p.Writer)
	table := tablewriter.NewWriter(p.Writer)
	table.Header("Currency", "Orders", "Original", "Rate", "Converted", "Note")
	for _, b := range v.Breakdown {
		converted := b.ConvertedSum
		if !b.Converted {
			converted += " (unconverted)"
		}
		if err := table.Append(b.Currency, strconv.Itoa(b.Orders), b.OriginalSum, dash(b.Rate), converted, dash(b.Note)); err != nil {
			return err
		}
	}
	return table.Render()
}

func (p *Printer) keyValues(rows [][]string) error {
	table := tablewriter.NewWriter(p.Writer)
	table.Header("Field", "Value")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func (p *Printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func toJobView(s integration.SyncSummary) jobView {
	v := jobView{
		JobID:          s.JobID.String(),
		StoreID:        s.StoreID.String(),
		OrganizationID: s.OrganizationID.String(),
		Direction:      string(s.Direction),
		RequestedBy:    s.RequestedBy,
		Status:         string(s.Status),
		Total:          s.Total,
		Succeeded:      s.Succeeded,
		Failed:         s.Failed,
		Deferred:       s.Deferred,
		StartedAt:      formatTime(s.StartedAt),
		FinishedAt:     formatTimePtr(s.FinishedAt),
		PhaseErrors:    s.PhaseErrors,
	}
	for _, e := range s.Errors {
		v.Errors = append(v.Errors, recordErrorView{
			EntityType: string(e.EntityType),
			LocalID:    e.LocalID,
			RemoteID:   e.RemoteID,
			Message:    e.Message,
			Retryable:  e.Retryable,
		})
	}
	return v
}

func toRevenueView(r reportapp.RevenueResponse) revenueView {
	v := revenueView{
		OrganizationID:    r.OrganizationID,
		Currency:          r.Currency,
		Total:             r.Total.String(),
		Orders:            r.OrderCount,
		Degraded:          r.Degraded,
		MissingCurrencies: r.MissingCurrencies,
		From:              formatTimePtr(r.From),
		To:                formatTimePtr(r.To),
		GeneratedAt:       formatTime(r.GeneratedAt),
	}

	currencies := make([]string, 0, len(r.CurrencyBreakdown))
	for c := range r.CurrencyBreakdown {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		b := r.CurrencyBreakdown[c]
		bv := breakdownView{
			Currency:     c,
			OriginalSum:  b.OriginalSum.String(),
			ConvertedSum: b.ConvertedSum.String(),
			Orders:       b.OrderCount,
			Converted:    b.Converted,
			Note:         b.Note,
		}
		if b.Rate != nil {
			bv.Rate = b.Rate.String()
		}
		v.Breakdown = append(v.Breakdown, bv)
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
