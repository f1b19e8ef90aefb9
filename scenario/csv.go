package scenario

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/ladderforge/plcsim/plcerr"
)

var scenarioHeader = []string{"time", "address", "value", "persist", "persist_duration", "note", "enabled"}

// LoadScenarioFile parses a scenario CSV file into a Scenario with
// loop settings left at their zero value (non-looping); callers that want
// looping configure Settings separately (see the scenario section of
// cmd/plcsimd's configuration).
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, plcerr.New(plcerr.CodeScenarioParseError, "open %s: %v", path, err)
	}
	defer f.Close()
	return parseScenarioCSV(f)
}

func parseScenarioCSV(r io.Reader) (*Scenario, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, plcerr.New(plcerr.CodeScenarioParseError, "missing header: %v", err)
	}
	if !headerMatches(header) {
		return nil, plcerr.New(plcerr.CodeScenarioParseError, "header must be %v, got %v", scenarioHeader, header)
	}

	var events []Event
	lineNum := 1
	nextID := 0
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, plcerr.New(plcerr.CodeScenarioParseError, "line %d: %v", lineNum, err)
		}
		evt, err := parseEventRow(record, lineNum)
		if err != nil {
			return nil, err
		}
		evt.ID = nextID
		nextID++
		events = append(events, evt)
	}

	return &Scenario{Events: events}, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(scenarioHeader) {
		return false
	}
	for i, h := range scenarioHeader {
		if header[i] != h {
			return false
		}
	}
	return true
}

func parseEventRow(record []string, lineNum int) (Event, error) {
	if len(record) != len(scenarioHeader) {
		return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: expected %d columns, got %d", lineNum, len(scenarioHeader), len(record))
	}

	timeSeconds, err := strconv.ParseFloat(record[0], 64)
	if err != nil {
		return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: bad time %q: %v", lineNum, record[0], err)
	}
	if timeSeconds < 0 {
		return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: time %.3f must be >= 0", lineNum, timeSeconds)
	}

	target, err := parseAddress(record[1])
	if err != nil {
		return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: %v", lineNum, err)
	}

	value, err := strconv.ParseUint(record[2], 10, 16)
	if err != nil {
		return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: bad value %q: %v", lineNum, record[2], err)
	}

	persist := true
	if record[3] != "" {
		persist, err = strconv.ParseBool(record[3])
		if err != nil {
			return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: bad persist %q: %v", lineNum, record[3], err)
		}
	}

	persistDurationMs := 0
	if record[4] != "" {
		d, err := strconv.Atoi(record[4])
		if err != nil {
			return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: bad persist_duration %q: %v", lineNum, record[4], err)
		}
		persistDurationMs = d
	}

	enabled := true
	if record[6] != "" {
		enabled, err = strconv.ParseBool(record[6])
		if err != nil {
			return Event{}, plcerr.New(plcerr.CodeScenarioParseError, "line %d: bad enabled %q: %v", lineNum, record[6], err)
		}
	}

	return Event{
		TimeSeconds:       timeSeconds,
		Target:            target,
		Value:             uint16(value),
		Persist:           persist,
		PersistDurationMs: persistDurationMs,
		Note:              record[5],
		Enabled:           enabled,
	}, nil
}
