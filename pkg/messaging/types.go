package messaging

type ChangeTopic string

const (
	ItemsUpserted ChangeTopic = "item_changed"
	ItemsDeleted  ChangeTopic = "item_deleted"
)

// GlobalPrefix is used for exchanges shared by every country.
const GlobalPrefix = "global"

type RabbitConfig struct {
	Url    string
	Prefix string
}
