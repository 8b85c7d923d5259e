package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/eugenenazirov/stowage/internal/geometry"
	"github.com/eugenenazirov/stowage/internal/planner"
)

// WriteArrangement writes one row per stowed item with its container and
// box corners as "(w,d,h),(w,d,h)".
func WriteArrangement(w io.Writer, items []planner.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColItemID, ColContainerID, ColCoordinates}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, it := range items {
		if it.Location == nil {
			continue
		}
		record := []string{it.ID, it.Location.ContainerID, FormatCoordinates(it.Location.Box)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write item %s: %w", it.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCoordinates renders a box as its two corner triples.
func FormatCoordinates(b geometry.Box) string {
	return fmt.Sprintf("(%s,%s,%s),(%s,%s,%s)",
		num(b.Start.W), num(b.Start.D), num(b.Start.H),
		num(b.End.W), num(b.End.D), num(b.End.H))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
