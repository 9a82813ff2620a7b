package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderReport prints a run report as tables, or as indented JSON.
func RenderReport(w io.Writer, rep *backup.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, rep)
	}
	fmt.Fprintf(w, "%s run %s (%s)\n", rep.Phase, rep.RunID, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))

	tw := tablewriter.NewWriter(w)
	itoa := strconv.Itoa
	if rep.Phase == backup.PhaseSave {
		tw.SetHeader([]string{"TYPE", "FETCHED", "FILTERED_OUT", "ANOMALIES", "PERSISTED"})
		for _, t := range rep.Types {
			tw.Append([]string{t.Type, itoa(t.Fetched), itoa(t.FilteredOut), itoa(t.Anomalies), itoa(t.Persisted)})
		}
	} else {
		tw.SetHeader([]string{"TYPE", "PRESENT", "FILTERED_OUT", "CREATED", "UPDATED", "SKIPPED", "ORPHANED", "FAILED", "REMAPPED"})
		for _, t := range rep.Types {
			tw.Append([]string{t.Type, strconv.FormatBool(t.Present), itoa(t.FilteredOut), itoa(t.Created), itoa(t.Updated),
				itoa(t.Skipped), itoa(t.Orphaned), itoa(t.Failed), itoa(rep.Remapped[t.Type])})
		}
	}
	tw.Render()

	if len(rep.Problems) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	pt := tablewriter.NewWriter(w)
	pt.SetHeader([]string{"KIND", "TYPE", "ID", "CAUSE"})
	for _, p := range rep.Problems {
		pt.Append([]string{string(p.Kind), p.Type, p.OriginalID, p.Cause})
	}
	pt.Render()
	return nil
}

// RenderPlan prints the resolved execution order.
func RenderPlan(w io.Writer, plan []backup.EntityDescriptor, asJSON bool) error {
	if asJSON {
		names := make([]string, len(plan))
		for i, d := range plan {
			names[i] = d.Type
		}
		return writeJSON(w, names)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"#", "TYPE", "DEPENDS_ON", "PARENT", "SELECTABLE", "KEY"})
	for i, d := range plan {
		tw.Append([]string{strconv.Itoa(i + 1), d.Type, strings.Join(d.Dependencies, ","), d.ParentType,
			strconv.FormatBool(d.Selectable), d.UniqueKey})
	}
	tw.Render()
	return nil
}

// RenderArchives prints archive summaries, newest first.
func RenderArchives(w io.Writer, infos []backup.ArchiveInfo, asJSON bool) error {
	if asJSON {
		if infos == nil {
			infos = []backup.ArchiveInfo{}
		}
		return writeJSON(w, infos)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"NAME", "CREATED_AT", "SOURCE", "TYPES", "RECORDS", "DESCRIPTION"})
	for _, a := range infos {
		tw.Append([]string{a.Name, a.CreatedAt.Format(time.RFC3339), a.Source, strconv.Itoa(a.Types),
			strconv.Itoa(a.Records), a.Description})
	}
	tw.Render()
	return nil
}

// RenderManifest prints one archive's metadata and collections.
func RenderManifest(w io.Writer, name string, m backup.Manifest, asJSON bool) error {
	if asJSON {
		return writeJSON(w, struct {
			Name string `json:"name"`
			backup.Manifest
		}{name, m})
	}
	fmt.Fprintf(w, "archive:     %s\nrun id:      %s\nsource:      %s\ncreated at:  %s\n",
		name, m.RunID, m.Source, m.CreatedAt.Format(time.RFC3339))
	if m.Description != "" {
		fmt.Fprintf(w, "description: %s\n", m.Description)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"TYPE", "RECORDS"})
	for _, c := range m.Collections {
		tw.Append([]string{c.Type, strconv.Itoa(c.Count)})
	}
	tw.Render()
	return nil
}
