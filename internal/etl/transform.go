package etl

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/xuri/excelize/v2"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

var timeType = reflect.TypeOf(time.Time{})

// maxExcelSerial is the serial of 9999-12-31, the last date Excel stores
const maxExcelSerial = 2958465

// dateHook turns text or Excel serial numbers into record dates. Text
// layouts win, so a compact 20250926 is a date and not a serial.
func dateHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	parsed, err := occupancy.ParseDate("record_date", s)
	if err == nil {
		return parsed, nil
	}
	if serial, perr := strconv.ParseFloat(s, 64); perr == nil {
		if serial <= 0 || serial >= maxExcelSerial+1 {
			return nil, errors.ValidationRange("record_date",
				fmt.Sprintf("'%s' is neither a date nor an Excel serial up to %d", s, maxExcelSerial))
		}
		return excelize.ExcelDateToTime(serial, false)
	}
	return nil, err
}

// Transform decodes a raw row into a RecordInput. Numbers may be written as
// text; a missing occupied_beds column means zero. It also returns the
// columns that were not used.
func Transform(row RawRow) (occupancy.RecordInput, []string, error) {
	var in occupancy.RecordInput

	if _, ok := row.Fields["bed_count"]; !ok {
		return in, nil, errors.ValidationRequired("bed_count")
	}
	if _, ok := row.Fields["record_date"]; !ok {
		return in, nil, errors.ValidationRequired("record_date")
	}

	input := make(map[string]interface{}, len(row.Fields))
	for k, v := range row.Fields {
		input[k] = v
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       dateHook,
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           &in,
	})
	if err != nil {
		return in, nil, errors.Internal(err)
	}

	if err := decoder.Decode(input); err != nil {
		return occupancy.RecordInput{}, nil, errors.Wrapf(err, errors.ErrCodeValidationFormat, "row %d: %v", row.Line, err)
	}

	return in, md.Unused, nil
}
