package model

import "time"

// MailItem is a raw item fetched from the mail provider. It only lives for
// the duration of one scan run and is never persisted in raw form.
// SourceID is the provider-assigned message id, stable per user+provider.
type MailItem struct {
	SourceID  string
	Subject   string
	Snippet   string
	Timestamp time.Time
}

// Prediction is one classifier result, already paired with the SourceID of
// the mail item it was produced for.
type Prediction struct {
	SourceID   string
	Label      string
	Confidence float64
}
