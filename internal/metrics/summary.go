package metrics

type Level string

const (
	LevelHard Level = "hard"
	LevelSoft Level = "soft"
)

type WarningMessage struct {
	Warning string `json:"warning"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Summary counts a duty's warnings by severity. Exceeding the daily span is a hard violation;
// continuous driving and break shortfalls are soft.
type Summary struct {
	Hard     int              `json:"hard"`
	Soft     int              `json:"soft"`
	Messages []WarningMessage `json:"messages"`
}

func SummarizeWarnings(m Metrics) Summary {
	summary := Summary{Messages: []WarningMessage{}}
	if m.Warnings.ExceedsDailySpan {
		summary.Hard++
		summary.Messages = append(summary.Messages, WarningMessage{
			Warning: WarningExceedsDailySpan,
			Level:   LevelHard,
			Message: "daily span exceeds the maximum",
		})
	}
	if m.Warnings.ExceedsContinuous {
		summary.Soft++
		summary.Messages = append(summary.Messages, WarningMessage{
			Warning: WarningExceedsContinuous,
			Level:   LevelSoft,
			Message: "continuous driving exceeds the maximum",
		})
	}
	if m.Warnings.InsufficientBreak {
		summary.Soft++
		summary.Messages = append(summary.Messages, WarningMessage{
			Warning: WarningInsufficientBreak,
			Level:   LevelSoft,
			Message: "a break is shorter than the minimum",
		})
	}
	return summary
}
