package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

var rows = []domain.ExportRow{
	{
		Body:        "Hello, \"friend\"\nsee you\r\ntomorrow",
		Recipient:   "+905551112233",
		Status:      domain.StatusSent,
		GatewayName: "primary",
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	},
	{
		Body:        "plain",
		Recipient:   "+905551112244",
		Status:      domain.StatusFailed,
		GatewayName: "",
		CreatedAt:   time.Date(2025, 3, 1, 13, 0, 0, 0, time.FixedZone("TRT", 3*3600)),
	},
}

func TestWriteCSV_OneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "body,recipient,status,gateway,created_at", lines[0])

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Hello, \"friend\" see you tomorrow", records[1][0])
	assert.Equal(t, "sent", records[1][2])
	assert.Equal(t, "primary", records[1][3])
	assert.Equal(t, "2025-03-01T10:00:00Z", records[2][4])
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(rows)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	got, err := xl.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, header, got[0])
	assert.Equal(t, "+905551112233", got[1][1])
	assert.Equal(t, "failed", got[2][2])
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "messages.xlsx", FormatXLSX.Filename())
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}
