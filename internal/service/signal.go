package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event veriport.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, domain.SignalChannel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Subscribe delivers lifecycle events until ctx is cancelled. Messages that
// fail to decode are dropped.
func (s *SignalService) Subscribe(ctx context.Context) (<-chan veriport.Event, error) {
	pubsub := s.rdb.Subscribe(ctx, domain.SignalChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	events := make(chan veriport.Event)
	go func() {
		defer pubsub.Close()
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event veriport.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
