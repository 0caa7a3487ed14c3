package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/golang/mock/gomock"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/database"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/source"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/dispatcher"
	"github.com/stretchr/testify/assert"
)

func TestStartBuild(t *testing.T) {
	t.Run("RunsBuildAndCountsItsFinalStatus", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		config := getConfig(t)
		sourceClient := source.NewMockClient(ctrl)
		sourceClient.EXPECT().GetSources(gomock.Any(), gomock.Any(), gomock.Any()).Return(source.ErrCloneFailed).Times(2)
		dispatcherService := dispatcher.NewMockService(ctrl)
		counter := newFakeCounter()

		service, err := NewService(context.Background(), config, sourceClient, dispatcherService, database.NewClient(config), counter)
		assert.Nil(t, err)

		// act
		err = service.StartBuild(context.Background(), api.Build{ID: "1", User: "titilambert", Project: "kaji", SourceType: api.SourceTypeGit})
		assert.Nil(t, err)
		err = service.StartBuild(context.Background(), api.Build{ID: "2", User: "titilambert", Project: "kaji", SourceType: api.SourceTypeGit})
		assert.Nil(t, err)
		err = service.Stop(context.Background())

		assert.Nil(t, err)
		assert.Equal(t, float64(2), counter.value("failed"))
	})

	t.Run("StoresScheduledBuild", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		config := getConfig(t)
		sourceClient := source.NewMockClient(ctrl)
		sourceClient.EXPECT().GetSources(gomock.Any(), gomock.Any(), gomock.Any()).Return(source.ErrCloneFailed)
		databaseClient := database.NewMockClient(ctrl)
		databaseClient.EXPECT().InsertBuild(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, build api.Build) error {
				assert.Equal(t, api.StatusScheduled, build.Status)
				return nil
			}).Times(1)
		databaseClient.EXPECT().UpdateBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
		databaseClient.EXPECT().FinishBuild(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

		service, err := NewService(context.Background(), config, sourceClient, dispatcher.NewMockService(ctrl), databaseClient, newFakeCounter())
		assert.Nil(t, err)

		// act
		err = service.StartBuild(context.Background(), api.Build{ID: "1", User: "titilambert", Project: "kaji", SourceType: api.SourceTypeGit})
		assert.Nil(t, err)
		err = service.Stop(context.Background())

		assert.Nil(t, err)
	})

	t.Run("RejectsBuildsAfterStop", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		config := getConfig(t)
		service, err := NewService(context.Background(), config, source.NewMockClient(ctrl), dispatcher.NewMockService(ctrl), database.NewClient(config), newFakeCounter())
		assert.Nil(t, err)
		err = service.Stop(context.Background())
		assert.Nil(t, err)

		// act
		err = service.StartBuild(context.Background(), api.Build{ID: "1"})

		assert.True(t, errors.Is(err, ErrServiceStopped))
	})

	t.Run("StopReturnsWhenGracePeriodExpires", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		config := getConfig(t)
		release := make(chan struct{})
		sourceClient := source.NewMockClient(ctrl)
		sourceClient.EXPECT().GetSources(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, build *api.Build, sourceDir string) error {
				<-release
				return source.ErrCloneFailed
			})

		service, err := NewService(context.Background(), config, sourceClient, dispatcher.NewMockService(ctrl), database.NewClient(config), newFakeCounter())
		assert.Nil(t, err)
		err = service.StartBuild(context.Background(), api.Build{ID: "1", User: "titilambert", Project: "kaji", SourceType: api.SourceTypeGit})
		assert.Nil(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		// act
		err = service.Stop(ctx)

		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		close(release)
	})
}

type fakeCounter struct {
	mutex  *sync.Mutex
	values map[string]float64
	label  string
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{mutex: &sync.Mutex{}, values: map[string]float64{}}
}

func (c *fakeCounter) With(labelValues ...string) metrics.Counter {
	label := ""
	if len(labelValues) == 2 {
		label = labelValues[1]
	}
	return &fakeCounter{mutex: c.mutex, values: c.values, label: label}
}

func (c *fakeCounter) Add(delta float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.values[c.label] += delta
}

func (c *fakeCounter) value(label string) float64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.values[label]
}
