// Package render writes audit reports as text, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimexpiry/internal/expiry"
	"github.com/ppiankov/claimexpiry/internal/host"
	"github.com/ppiankov/claimexpiry/internal/model"
)

// Format selects the output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Renderer writes reports
type Renderer struct {
	// All lists every owner in text output, not only those with eligible claims.
	All bool
}

// NewRenderer creates a new renderer
func NewRenderer(all bool) *Renderer {
	return &Renderer{All: all}
}

// Render writes report to w in format
func (r *Renderer) Render(w io.Writer, report *model.AuditReport, format Format) error {
	switch format {
	case FormatJSON:
		return r.RenderJSON(w, report)
	case FormatYAML:
		return r.RenderYAML(w, report)
	default:
		return r.RenderText(w, report)
	}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(w io.Writer, report *model.AuditReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// RenderYAML writes the report as YAML
func (r *Renderer) RenderYAML(w io.Writer, report *model.AuditReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

// RenderText writes a human-readable summary
func (r *Renderer) RenderText(w io.Writer, report *model.AuditReport) error {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════\n")
	b.WriteString("  Claim Expiration Audit\n")
	b.WriteString("═══════════════════════════════════════════════════════════\n\n")

	fmt.Fprintf(&b, "  World:        %s\n", report.Source)
	fmt.Fprintf(&b, "  Generated:    %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  Rate:         %s %s/hour\n", humanize.FtoaWithDigits(report.Pacing.RateValue, 2), report.Pacing.RateType)
	fmt.Fprintf(&b, "  Cycle delay:  %s ticks (%s)\n",
		humanize.Comma(report.Pacing.DelayTicks), host.Ticks(report.Pacing.DelayTicks).Duration())
	fmt.Fprintf(&b, "  Generation:   %s\n\n", report.Pacing.GenerationDuration)

	s := report.Summary
	fmt.Fprintf(&b, "  Owners:       %s\n", humanize.Comma(int64(s.Owners)))
	fmt.Fprintf(&b, "  Exempt:       %d\n", s.Exempt)
	fmt.Fprintf(&b, "  Protected:    %d\n", s.Protected)
	fmt.Fprintf(&b, "  Unknown:      %d\n", s.Unknown)
	fmt.Fprintf(&b, "  Expiring:     %d owners, %d claims\n\n", s.WithEligible, s.EligibleClaims)

	for _, o := range report.Owners {
		if !r.All && !hasEligible(o) {
			continue
		}
		writeOwner(&b, o)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeOwner(b *strings.Builder, o model.OwnerAudit) {
	name := o.Name
	if name == "" {
		name = expiry.UnknownName
	}
	fmt.Fprintf(b, "  %s (%s): %s", name, o.Owner, o.Status)
	if o.Status == model.OwnerEvaluated || o.Status == model.OwnerProtected {
		fmt.Fprintf(b, ", inactive %s", expiry.Days(o.Inactive))
	}
	b.WriteString("\n")
	if o.Error != "" {
		fmt.Fprintf(b, "    ✗ %s\n", o.Error)
	}

	for _, c := range o.Claims {
		fmt.Fprintf(b, "    %s claim %d in %s, area %s, %s\n",
			claimMark(c), c.Claim, c.World, humanize.Comma(int64(c.Area)), claimState(c))
	}
}

func claimMark(c model.ClaimVerdict) string {
	if c.Eligible {
		return "✗"
	}
	return " "
}

func claimState(c model.ClaimVerdict) string {
	window := expiry.Days(c.Protection)
	switch {
	case c.Never:
		return "never expires"
	case c.Eligible:
		return "expiring, past its " + window + " window"
	case c.Exempt:
		return "past its " + window + " window, owner exempt in this world"
	default:
		return "kept, within its " + window + " window"
	}
}

func hasEligible(o model.OwnerAudit) bool {
	for _, c := range o.Claims {
		if c.Eligible {
			return true
		}
	}
	return false
}
