package problem

// Problem is the judging-relevant slice of a problem definition: the
// resource limits and which test data pack version is current.
type Problem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TimeLimitMs   int    `json:"timeLimitMs"`
	MemoryLimitMB int    `json:"memoryLimitMb"`
	DataVersion   string `json:"dataVersion"`
}
