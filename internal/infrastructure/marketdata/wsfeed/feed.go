package wsfeed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Feed consumes a market-data websocket stream and turns each update into a
// cache invalidation. A price update for a date means every snapshot on that
// date is stale; an FX update likewise.
type Feed struct {
	wsURL     string
	publisher port.InvalidationPublisher
}

func New(wsURL string, publisher port.InvalidationPublisher) *Feed {
	return &Feed{wsURL: strings.TrimSpace(wsURL), publisher: publisher}
}

// updateMsg is the upstream wire format.
type updateMsg struct {
	Kind    string `json:"kind"` // "price" or "fx"
	AssetID string `json:"assetId,omitempty"`
	Date    string `json:"date"`
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff on any failure.
func (f *Feed) Run(ctx context.Context) {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Info().Str("url", f.wsURL).Msg("marketdata feed connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, f.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("marketdata feed dial failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Msg("marketdata feed connected")

		err = readLoop(ctx, conn, func(b []byte) {
			f.handle(ctx, b)
		})

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Err(err).Msg("marketdata feed disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = minDur(backoff*2, maxBackoff)
	}
}

func (f *Feed) handle(ctx context.Context, b []byte) {
	var msg updateMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Err(err).Msg("marketdata feed unmarshal failed")
		return
	}
	date, err := model.ParseDate(msg.Date)
	if err != nil {
		log.Warn().Str("date", msg.Date).Msg("marketdata update with bad date, dropped")
		return
	}

	var change model.ChangeType
	switch strings.ToLower(msg.Kind) {
	case "price":
		change = model.ChangePrice
	case "fx":
		change = model.ChangeFx
	default:
		log.Warn().Str("kind", msg.Kind).Msg("marketdata update with unknown kind, dropped")
		return
	}

	ev := model.InvalidationEvent{
		ChangeType: change,
		AssetID:    msg.AssetID,
		FromDate:   date,
	}
	if err := f.publisher.Publish(ctx, ev); err != nil {
		log.Error().Err(err).Str("changeType", string(change)).Msg("publish invalidation failed")
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err == nil {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			}
			if err != nil {
				errCh <- err
				return
			}
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
