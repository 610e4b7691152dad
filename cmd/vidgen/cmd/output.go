package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/psantana5/vidgen/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFields renders label/value pairs as a two column table
func printFields(w io.Writer, rows [][2]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func printSnapshot(w io.Writer, snap models.JobSnapshot, jsonOut bool) error {
	if jsonOut {
		return printJSON(w, snap)
	}
	rows := [][2]string{
		{"Job ID", valueOr(string(snap.JobID), "-")},
		{"State", string(snap.State)},
		{"Progress", fmt.Sprintf("%.0f%%", snap.Progress)},
		{"Message", valueOr(snap.Message, "-")},
	}
	if snap.VideoURL != "" {
		rows = append(rows, [2]string{"Video URL", snap.VideoURL})
	}
	return printFields(w, rows)
}

func printRemoteStatus(w io.Writer, st models.RemoteStatus, jsonOut bool) error {
	if jsonOut {
		return printJSON(w, st)
	}
	rows := [][2]string{
		{"Job ID", st.JobID},
		{"Status", string(st.Status)},
		{"Progress", fmt.Sprintf("%.0f%%", st.Progress)},
		{"Message", valueOr(st.Message, "-")},
	}
	if st.VideoURL != "" {
		rows = append(rows, [2]string{"Video URL", st.VideoURL})
	}
	return printFields(w, rows)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
