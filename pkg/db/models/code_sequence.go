package models

// CodeSequence backs the human readable EMPnnn / TKTnnn codes.
type CodeSequence struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}

func (CodeSequence) TableName() string { return "code_sequences" }
