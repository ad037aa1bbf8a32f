package model

type AlarmType string

const (
	AlarmLike    AlarmType = "LIKE"
	AlarmComment AlarmType = "COMMENT"
	AlarmFollow  AlarmType = "FOLLOW"
)

type Alarm struct {
	ID             int64     `json:"id"`
	AlarmType      AlarmType `json:"alarmType"`
	FromUserName   string    `json:"fromUserName"`
	TargetUserName string    `json:"targetUserName"`
	Text           string    `json:"text"`
	RegisteredAt   string    `json:"registeredAt"`
}

func AlarmKey(a Alarm) int64 { return a.ID }
