package invalidation

import "fmt"

// Topic is the closed set of change notifications.
type Topic uint8

const (
	TopicKPIData Topic = iota + 1
	TopicGoals
	TopicProgression
	TopicContent
)

// Topics lists every topic in declaration order.
var Topics = []Topic{TopicKPIData, TopicGoals, TopicProgression, TopicContent}

func (t Topic) Valid() bool {
	return t >= TopicKPIData && t <= TopicContent
}

func (t Topic) String() string {
	switch t {
	case TopicKPIData:
		return "kpi_data"
	case TopicGoals:
		return "goals"
	case TopicProgression:
		return "progression"
	case TopicContent:
		return "content"
	}
	return fmt.Sprintf("topic(%d)", uint8(t))
}

func ParseTopic(s string) (Topic, error) {
	for _, t := range Topics {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown topic %q", s)
}

func (t Topic) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid topic %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Topic) UnmarshalText(b []byte) error {
	parsed, err := ParseTopic(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var tableTopics = map[string]Topic{
	"weekly_kpi_values":     TopicKPIData,
	"daily_metrics":         TopicKPIData,
	"weekly_metric_rollups": TopicKPIData,
	"kpi_definitions":       TopicGoals,
	"user_progression":      TopicProgression,
	"unlocked_achievements": TopicProgression,
	"content_items":         TopicContent,
}

// TopicForTable maps a remote table name to the topic its changes invalidate.
func TopicForTable(table string) (Topic, bool) {
	t, ok := tableTopics[table]
	return t, ok
}
