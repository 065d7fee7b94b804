package meeting

import "time"

// Meeting is the metadata of one recorded meeting.
type Meeting struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HappenedAt time.Time `json:"happenedAt"`
	URL        string    `json:"url"`
	Organizer  Person    `json:"organizer"`
	Invitees   []Person  `json:"invitees"`
	// Duration in seconds; 0 when the platform did not report it.
	Duration float64 `json:"duration,omitempty"`
}

// Person is a meeting participant.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TranscriptTurn is one contiguous utterance: who spoke, when (seconds
// from meeting start), and what they said.
type TranscriptTurn struct {
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

type meetingsPage struct {
	Results  []Meeting `json:"results"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Total    int       `json:"total"`
	PageSize int       `json:"pageSize"`
}

type transcriptResponse struct {
	ID   string           `json:"id"`
	Data []TranscriptTurn `json:"data"`
}
