package models

// Image is one uploaded gallery item. ImageURL is the provider's secure URL and
// is never rewritten after insert.
type Image struct {
	ID       int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title    *string `gorm:"column:title" json:"title"`
	ImageURL string  `gorm:"column:image_url;not null" json:"image_url"`
}

func (Image) TableName() string {
	return "images"
}
