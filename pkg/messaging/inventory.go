package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/matst80/slask-fordon/pkg/common"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// InventoryFeed applies inventory changes from the message bus to a
// repository in batches.
type InventoryFeed struct {
	writer  repository.Writer
	upserts *common.QueueHandler[types.Item]
	deletes *common.QueueHandler[string]
}

func NewInventoryFeed(writer repository.Writer, batchSize int) *InventoryFeed {
	return &InventoryFeed{
		writer: writer,
		upserts: common.NewQueueHandler(func(items []types.Item) {
			writer.Upsert(items...)
		}, batchSize),
		deletes: common.NewQueueHandler(func(ids []string) {
			writer.Delete(ids...)
		}, batchSize),
	}
}

func (f *InventoryFeed) HandleUpserted(body []byte) error {
	items := make([]types.Item, 0)
	if err := json.Unmarshal(body, &items); err != nil {
		return fmt.Errorf("decode upserted items: %w", err)
	}
	f.upserts.Add(items...)
	return nil
}

func (f *InventoryFeed) HandleDeleted(body []byte) error {
	ids := make([]string, 0)
	if err := json.Unmarshal(body, &ids); err != nil {
		return fmt.Errorf("decode deleted ids: %w", err)
	}
	f.deletes.Add(ids...)
	return nil
}

// Flush applies everything received so far, upserts before deletes.
func (f *InventoryFeed) Flush() {
	f.upserts.Flush()
	f.deletes.Flush()
}

func (f *InventoryFeed) Close() {
	f.upserts.Stop()
	f.deletes.Stop()
}

func (f *InventoryFeed) listen(conn *amqp.Connection, prefix string, topic ChangeTopic, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err = DefineTopic(ch, prefix, topic); err != nil {
		ch.Close()
		return err
	}
	return ListenToTopic(ch, prefix, topic, func(d amqp.Delivery) error {
		return handle(d.Body)
	})
}

// Connect starts consuming both change topics, each on its own channel.
func (f *InventoryFeed) Connect(conn *amqp.Connection, prefix string) error {
	if err := f.listen(conn, prefix, ItemsUpserted, f.HandleUpserted); err != nil {
		return fmt.Errorf("listen to %s: %w", ItemsUpserted, err)
	}
	if err := f.listen(conn, prefix, ItemsDeleted, f.HandleDeleted); err != nil {
		return fmt.Errorf("listen to %s: %w", ItemsDeleted, err)
	}
	return nil
}

// Publisher sends inventory changes, used by importers and tests against a
// live broker.
type Publisher struct {
	Conn   *amqp.Connection
	Prefix string
}

func (p *Publisher) Define() error {
	ch, err := p.Conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err = DefineTopic(ch, p.Prefix, ItemsUpserted); err != nil {
		return err
	}
	return DefineTopic(ch, p.Prefix, ItemsDeleted)
}

func (p *Publisher) Upserted(items []types.Item) error {
	return SendChange(p.Conn, p.Prefix, ItemsUpserted, items)
}

func (p *Publisher) Deleted(ids []string) error {
	return SendChange(p.Conn, p.Prefix, ItemsDeleted, ids)
}
