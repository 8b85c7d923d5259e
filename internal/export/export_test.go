package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/stowage/internal/planner"
)

func sampleManifest() planner.Manifest {
	return planner.Manifest{
		UndockingContainerID: "contC",
		UndockingDate:        time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
		ReturnItems: []planner.ReturnItem{
			{ItemID: "001", Name: "Food Packet", Mass: 5, Volume: 2000, Reason: planner.ReasonExpired},
			{ItemID: "005", Name: "First Aid Kit", Mass: 2, Volume: 4000, Reason: planner.ReasonOutOfUses},
		},
		TotalWeight: 7,
		TotalVolume: 6000,
	}
}

func TestWriteManifestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteManifestXLSX(&buf, sampleManifest()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(manifestSheet)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"Undocking Container", "contC"}, rows[0])
	assert.Equal(t, "Item ID", rows[5][0])
	assert.Equal(t, []string{"001", "Food Packet", "5", "2000", "Expired"}, rows[6])
	assert.Equal(t, "Out of Uses", rows[7][4])
}

func TestWriteManifestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteManifestPDF(&buf, sampleManifest()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestWriteManifestPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteManifestPDF(&buf, planner.Manifest{UndockingContainerID: "contC"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
