package ua

// PublishRequestBody is the service-specific portion of a PublishRequest:
// a list of subscription acknowledgements (spec.md §4.4).
type PublishRequestBody struct {
	SubscriptionAcknowledgements []int32
}

// DecodePublishRequestBody decodes the acks array.
func DecodePublishRequestBody(buf *Buffer) (PublishRequestBody, error) {
	acks, err := buf.ReadInt32Array()
	return PublishRequestBody{SubscriptionAcknowledgements: acks}, err
}

// NotificationMessage is the payload the subscription engine hands to
// forward_publish_response (spec.md §4.4, §6 publish_cb). Its internal
// structure belongs to the subscription engine / codec library; the
// processor only carries it from callback to PublishResponse.Parameters.
type NotificationMessage struct {
	Raw []byte
}

// AsParams adapts a notification into the opaque Params the
// PublishResponse body expects.
func (n NotificationMessage) AsParams() Params {
	return Params{Raw: n.Raw}
}
