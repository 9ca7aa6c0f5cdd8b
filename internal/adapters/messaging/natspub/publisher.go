package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	"github.com/ogurasousui/worklog-review/internal/platform/config"
)

// ClientName は NATS 接続に付与する名前です。
const ClientName = "worklog-review"

const approvedSubjectSuffix = "workentry.approved"

// Conn は Publisher が必要とする NATS 接続の操作です。*nats.Conn が満たします。
type Conn interface {
	PublishMsg(msg *nats.Msg) error
}

// Publisher は承認完了イベントを NATS に発行します。
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher は Publisher を生成します。
func NewPublisher(conn Conn, subjectPrefix string) *Publisher {
	return &Publisher{conn: conn, subject: ApprovedSubject(subjectPrefix)}
}

// ApprovedSubject は承認完了イベントの subject を返します。
func ApprovedSubject(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return approvedSubjectSuffix
	}
	return prefix + "." + approvedSubjectSuffix
}

// PublishApproved は workentry.EventPublisher を実装します。
// Nats-Msg-Id にイベント ID を設定するため、JetStream 側で重複排除できます。
func (p *Publisher) PublishApproved(ctx context.Context, event workentry.ApprovedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("natspub: marshal approved event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.EventID)
	msg.Header.Set("Content-Type", "application/json")

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("natspub: publish %s: %w", p.subject, err)
	}
	return nil
}

// Connect は設定に従って NATS に接続します。
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(ClientName),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("natspub: connect %s: %w", cfg.URL, err)
	}
	return conn, nil
}

// Close は送信待ちのメッセージを流し切ってから接続を閉じます。
func Close(conn *nats.Conn) {
	if conn == nil {
		return
	}
	_ = conn.Drain()
	conn.Close()
}

var _ workentry.EventPublisher = (*Publisher)(nil)
