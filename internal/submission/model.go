package submission

import "time"

// Status tracks a submission through its lifecycle. Once judging
// finishes the status holds the final verdict string.
const (
	StatusPending = "PENDING"
	StatusJudging = "JUDGING"
)

// Snapshot is the persisted state of one submission, and the payload
// broadcast to submission list watchers.
type Snapshot struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProblemID string    `json:"problemId"`
	ContestID string    `json:"contestId,omitempty"`
	Language  string    `json:"language"`
	Status    string    `json:"status"`
	Score     int       `json:"score"`
	TimeMs    int64     `json:"timeMs"`
	MemoryKB  int64     `json:"memoryKb"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the submission has reached a final verdict.
func (s *Snapshot) Terminal() bool {
	return s.Status != StatusPending && s.Status != StatusJudging
}
