package webhooks

import (
	"fmt"
	"strings"
)

type Topic string

const (
	TopicCustomersDataRequest Topic = "CUSTOMERS_DATA_REQUEST"
	TopicProductsUpdate       Topic = "PRODUCTS_UPDATE"
	TopicCustomersRedact      Topic = "CUSTOMERS_REDACT"
	TopicShopRedact           Topic = "SHOP_REDACT"
	TopicOrdersUpdated        Topic = "ORDERS_UPDATED"
)

var knownTopics = []Topic{
	TopicCustomersDataRequest,
	TopicProductsUpdate,
	TopicCustomersRedact,
	TopicShopRedact,
	TopicOrdersUpdated,
}

// Header returns the form the platform sends in X-Shopify-Topic, e.g.
// ORDERS_UPDATED becomes orders/updated.
func (t Topic) Header() string {
	resource, action, found := strings.Cut(string(t), "_")
	if !found {
		return strings.ToLower(string(t))
	}
	return strings.ToLower(resource) + "/" + strings.ToLower(action)
}

func (t Topic) String() string {
	return string(t)
}

// ParseTopic accepts either the header form or the constant form.
func ParseTopic(value string) (Topic, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "/", "_")
	if normalized == "" {
		return "", fmt.Errorf("webhooks: topic is required")
	}
	return Topic(normalized), nil
}
