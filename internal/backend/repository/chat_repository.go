package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/feedsync/internal/backend/model"
)

type ChatRepository interface {
	FindRoom(ctx context.Context, id int64) (*model.ChatRoom, error)
	FindRoomBetween(ctx context.Context, a, b int64) (*model.ChatRoom, error)
	CreateRoom(ctx context.Context, room *model.ChatRoom) error
	IsMember(ctx context.Context, roomID, userID int64) (bool, error)
	ListRooms(ctx context.Context, userID int64, offset, limit int) ([]*model.ChatRoom, error)

	SaveMessage(ctx context.Context, m *model.ChatMessage) error
	History(ctx context.Context, roomID int64, offset, limit int) ([]*model.ChatMessage, error)
	LastMessage(ctx context.Context, roomID int64) (*model.ChatMessage, error)
	MarkRead(ctx context.Context, roomID, userID, at int64) error
	UnreadCount(ctx context.Context, roomID, userID int64) (int64, error)
}

type chatRepository struct{ db *gorm.DB }

func NewChatRepository(db *gorm.DB) ChatRepository { return &chatRepository{db: db} }

func (r *chatRepository) FindRoom(ctx context.Context, id int64) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// FindRoomBetween 不区分创建者与加入者
func (r *chatRepository) FindRoomBetween(ctx context.Context, a, b int64) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.WithContext(ctx).
		Where("(creator_id = ? AND joiner_id = ?) OR (creator_id = ? AND joiner_id = ?)", a, b, b, a).
		First(&room).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// CreateRoom 同事务写入房间与两名成员
func (r *chatRepository) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		members := []model.ChatMember{
			{RoomID: room.ID, UserID: room.CreatorID},
			{RoomID: room.ID, UserID: room.JoinerID},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error
	})
}

func (r *chatRepository) IsMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.ChatMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

// ListRooms 新建的房间在前；调用方多取一条判断 hasNext
func (r *chatRepository) ListRooms(ctx context.Context, userID int64, offset, limit int) ([]*model.ChatRoom, error) {
	var res []*model.ChatRoom
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&model.ChatMember{}).Select("room_id").Where("user_id = ?", userID)).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *chatRepository) SaveMessage(ctx context.Context, m *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// History 最新在前
func (r *chatRepository) History(ctx context.Context, roomID int64, offset, limit int) ([]*model.ChatMessage, error) {
	var res []*model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("send_date DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *chatRepository) LastMessage(ctx context.Context, roomID int64) (*model.ChatMessage, error) {
	var m model.ChatMessage
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("send_date DESC, created_at DESC").First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// MarkRead 已读位置只前进不后退
func (r *chatRepository) MarkRead(ctx context.Context, roomID, userID, at int64) error {
	return r.db.WithContext(ctx).Model(&model.ChatMember{}).
		Where("room_id = ? AND user_id = ? AND last_read_at < ?", roomID, userID, at).
		Update("last_read_at", at).Error
}

// UnreadCount 对方在已读位置之后发出的消息数
func (r *chatRepository) UnreadCount(ctx context.Context, roomID, userID int64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ?", roomID, userID).
		Where("send_date > (?)", r.db.Model(&model.ChatMember{}).Select("last_read_at").Where("room_id = ? AND user_id = ?", roomID, userID)).
		Count(&cnt).Error
	return cnt, err
}
