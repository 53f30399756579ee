package models

import "encoding/json"

// BatchError is used to store errors encountered while batch
// applying pending actions or ingesting announcement files, keyed
// so that re-running a batch does not duplicate rows.
type BatchError struct {
	ProcessDate               string          `gorm:"primary_key" sql:"type:date NOT NULL"`
	Source                    string          `gorm:"primary_key" sql:"type:text NOT NULL"`
	PrimaryRecordIdentifier   string          `gorm:"primary_key" sql:"type:text NOT NULL"`
	SecondaryRecordIdentifier string          `gorm:"primary_key" sql:"type:text;default:''"`
	Error                     json.RawMessage `sql:"type:json"`
}
