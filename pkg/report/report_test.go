package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

const csvHeader = `"Transaction ID","Date","Description","Amount"`

func decode(t *testing.T, data string) []models.TransactionRecord {
	t.Helper()
	var records []models.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(data), &records))
	return records
}

func TestEncodeCSV(t *testing.T) {
	tests := []struct {
		name    string
		records string
		want    string
	}{
		{
			name:    "single row",
			records: `[{"transaction_id":"T1","date":"2024-01-01","description":"Coffee","amount":3.5}]`,
			want:    csvHeader + "\n" + `"T1","2024-01-01","Coffee",3.5`,
		},
		{
			name:    "embedded quotes doubled",
			records: `[{"transaction_id":"T2","date":"2024-01-02","description":"He said \"hi\"","amount":-1}]`,
			want:    csvHeader + "\n" + `"T2","2024-01-02","He said ""hi""",-1`,
		},
		{
			name:    "missing fields",
			records: `[{}]`,
			want:    csvHeader + "\n" + `"","","",""`,
		},
		{
			name:    "string amount passed through",
			records: `[{"transaction_id":"T3","amount":"12.40"}]`,
			want:    csvHeader + "\n" + `"T3","","","12.40"`,
		},
		{
			name:    "commas and newlines stay inside quotes",
			records: `[{"description":"a, b\nc","amount":1.0}]`,
			want:    csvHeader + "\n" + "\"\",\"\",\"a, b\nc\",1.0",
		},
		{
			name:    "empty input",
			records: `[]`,
			want:    csvHeader,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCSV(decode(t, tt.records))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeCSV_NilInput(t *testing.T) {
	assert.Equal(t, csvHeader, string(EncodeCSV(nil)))
}

func TestEncodeCSV_NonFiniteAmount(t *testing.T) {
	records := []models.TransactionRecord{
		{TransactionID: models.TextOf("N"), Amount: models.NewAmount(math.NaN())},
		{TransactionID: models.TextOf("I"), Amount: models.NewAmount(math.Inf(1))},
	}
	got := string(EncodeCSV(records))
	assert.Equal(t, csvHeader+"\n"+`"N","","",""`+"\n"+`"I","","",""`, got)
	assert.NotContains(t, got, "NaN")
	assert.NotContains(t, got, ",0")
}

func readWorkbook(t *testing.T, body []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestEncodeXLSX(t *testing.T) {
	records := decode(t, `[
		{"transaction_id":"T1","date":"2024-01-01","description":"Coffee","amount":3.5},
		{"transaction_id":"T2","description":"He said \"hi\"","amount":"12.40"},
		{"date":"2024-01-03"}
	]`)
	records = append(records, models.TransactionRecord{TransactionID: models.TextOf("T4"), Amount: models.NewAmount(math.Inf(-1))})

	body, err := EncodeXLSX(records)
	require.NoError(t, err)

	rows := readWorkbook(t, body)
	require.Len(t, rows, 5)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"T1", "2024-01-01", "Coffee", "3.5"}, rows[1])
	assert.Equal(t, []string{"T2", "", `He said "hi"`, "12.40"}, rows[2])
	assert.Equal(t, "2024-01-03", rows[3][1])
	assert.Equal(t, "T4", rows[4][0])
	if len(rows[4]) > 3 {
		assert.Equal(t, "", rows[4][3])
	}
}

func TestEncodeXLSX_NumericCell(t *testing.T) {
	body, err := EncodeXLSX(decode(t, `[{"amount":42.25}]`))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	typ, err := f.GetCellType(SheetName, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
}

func TestEncodeXLSX_Empty(t *testing.T) {
	body, err := EncodeXLSX(nil)
	require.NoError(t, err)

	rows := readWorkbook(t, body)
	require.Len(t, rows, 1)
	assert.Equal(t, Header, rows[0])
}

func TestEncode(t *testing.T) {
	records := decode(t, `[{"transaction_id":"T1","amount":1}]`)

	a, err := Encode(FormatCSV, "u-42", records)
	require.NoError(t, err)
	assert.Equal(t, "transaction_u-42.csv", a.Filename)
	assert.Equal(t, "text/csv", a.ContentType)
	assert.Equal(t, EncodeCSV(records), a.Body)

	a, err = Encode(FormatExcel, "u-42", records)
	require.NoError(t, err)
	assert.Equal(t, "transaction_u-42.xlsx", a.Filename)
	assert.Equal(t, "application/octet-stream", a.ContentType)
	assert.NotEmpty(t, a.Body)

	_, err = Encode(Format("pdf"), "u-42", records)
	var ee *EncodingError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, Format("pdf"), ee.Format)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"excel", FormatExcel, false},
		{"xlsx", FormatExcel, false},
		{" Excel ", FormatExcel, false},
		{"pdf", "", true},
		{"", "", true},
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
}
