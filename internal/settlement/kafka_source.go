package settlement

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/shared/kafka"
)

// KafkaSource lê o tópico de resultados num consumer group.
// O offset só é commitado no Ack; um Nack com requeue fecha o reader e
// o grupo volta a entregar a partir do último offset commitado.
type KafkaSource struct {
	Brokers []string
	Topic   string
	GroupID string
	Log     *zap.Logger

	mu     sync.Mutex
	reader *kafka.Reader
	cancel context.CancelFunc
}

func NewKafkaSource(brokers []string, topic, groupID string, log *zap.Logger) *KafkaSource {
	return &KafkaSource{Brokers: brokers, Topic: topic, GroupID: groupID, Log: log}
}

func (s *KafkaSource) Open(ctx context.Context) (<-chan Message, error) {
	r := kafka.NewReader(s.Brokers, s.Topic, s.GroupID)
	rctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.reader, s.cancel = r, cancel
	s.mu.Unlock()

	s.Log.Info("kafka consumer started", zap.String("topic", s.Topic), zap.String("group", s.GroupID))

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			km, err := r.FetchMessage(rctx)
			if err != nil {
				if rctx.Err() == nil {
					s.Log.Warn("kafka fetch failed", zap.Error(err))
				}
				return
			}
			m := Message{
				Body: km.Value,
				Ack:  func() error { return r.CommitMessages(context.Background(), km) },
				Nack: func(requeue bool) error {
					if !requeue {
						return r.CommitMessages(context.Background(), km)
					}
					cancel()
					return nil
				},
			}
			select {
			case out <- m:
			case <-rctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *KafkaSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil {
		return nil
	}
	s.cancel()
	err := s.reader.Close()
	s.reader, s.cancel = nil, nil
	return err
}
