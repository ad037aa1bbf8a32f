package service

import (
	"context"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

type Alarms struct {
	alarms *paging.Collection[int64, model.Alarm]
}

func NewAlarms(d Deps) *Alarms {
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.Alarm], error) {
		return d.API.Alarms(ctx, req)
	}
	return &Alarms{alarms: paging.New(model.AlarmKey, fetch, paging.Options{
		Name:    "alarms",
		Size:    d.Paging.AlarmSize,
		Sort:    api.SortNewest,
		Metrics: d.recorder(),
	})}
}

func (a *Alarms) LoadMore(ctx context.Context) (int, error) { return a.alarms.LoadMore(ctx) }

func (a *Alarms) Refresh(ctx context.Context) (int, error) {
	a.alarms.Reset()
	return a.alarms.LoadMore(ctx)
}

func (a *Alarms) Items() []model.Alarm { return a.alarms.Items() }
func (a *Alarms) State() paging.State  { return a.alarms.State() }
func (a *Alarms) Close()               { a.alarms.Close() }
