package results

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/answermesh/core"
)

// record is the persisted shape of one task result.
type record struct {
	TaskID   string `json:"task_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func toRecords(set core.ResultSet) []record {
	out := make([]record, len(set.Results))
	for i, r := range set.Results {
		out[i] = record{TaskID: r.TaskID, Question: r.Question, Answer: r.Answer}
	}
	return out
}

func fromRecords(identity string, records []record) core.ResultSet {
	set := core.ResultSet{Identity: identity, Results: make([]core.TaskResult, len(records))}
	for i, rec := range records {
		set.Results[i] = core.TaskResult{TaskID: rec.TaskID, Question: rec.Question, Answer: rec.Answer}
	}
	return set
}

// Encode renders a result set as the indented triple list.
func Encode(set core.ResultSet) ([]byte, error) {
	b, err := json.MarshalIndent(toRecords(set), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode result set: %w", err)
	}
	return b, nil
}

// Decode parses a triple list for identity.
func Decode(identity string, data []byte) (core.ResultSet, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return core.ResultSet{}, fmt.Errorf("decode result set: %w", err)
	}
	return fromRecords(identity, records), nil
}
