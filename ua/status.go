package ua

// StatusCode is the OPC UA result code carried in response headers and
// per-item results. Only the subset the processor itself produces or
// consumes is enumerated; the codec library is assumed to carry the full
// table (spec.md §1).
type StatusCode uint32

// Status codes the processor can produce itself (spec.md §7).
const (
	StatusGood                    StatusCode = 0x00000000
	StatusBadNotImplemented       StatusCode = 0x80400000
	StatusBadSessionIDInvalid     StatusCode = 0x80250000
	StatusBadTooManyPublishReqs   StatusCode = 0x80780000
	StatusBadTcpMessageTypeBad    StatusCode = 0x807E0000
	StatusBadTcpMessageTooLarge   StatusCode = 0x80800000
	StatusBadConnectionClosed     StatusCode = 0x80AE0000
	StatusBadSecureChannelIDUnknn StatusCode = 0x80570000
)

// ObjectID is a numeric node identifier for a standard OPC UA type, the
// identifier space exposed by gopcua/opcua's ua package and used here for
// service dispatch (spec.md §4.4's "type-id based routing").
type ObjectID uint32

// Service request/response type-ids used by the dispatch table. Values
// match the canonical OPC UA numeric node-id namespace (ns=0) for the
// *_Encoding_DefaultBinary variants referenced throughout
// original_source/opcua/uaprocessor.py.
const (
	CreateSessionRequestEncodingDefaultBinary        ObjectID = 461
	CreateSessionResponseEncodingDefaultBinary        ObjectID = 464
	ActivateSessionRequestEncodingDefaultBinary       ObjectID = 467
	ActivateSessionResponseEncodingDefaultBinary      ObjectID = 470
	CloseSessionRequestEncodingDefaultBinary          ObjectID = 473
	CloseSessionResponseEncodingDefaultBinary         ObjectID = 476
	ReadRequestEncodingDefaultBinary                  ObjectID = 631
	ReadResponseEncodingDefaultBinary                 ObjectID = 634
	WriteRequestEncodingDefaultBinary                 ObjectID = 673
	WriteResponseEncodingDefaultBinary                ObjectID = 676
	BrowseRequestEncodingDefaultBinary                ObjectID = 527
	BrowseResponseEncodingDefaultBinary               ObjectID = 530
	TranslateBrowsePathsToNodeIdsRequestEncoding       ObjectID = 554
	TranslateBrowsePathsToNodeIdsResponseEncoding      ObjectID = 557
	AddNodesRequestEncodingDefaultBinary               ObjectID = 488
	AddNodesResponseEncodingDefaultBinary              ObjectID = 491
	GetEndpointsRequestEncodingDefaultBinary           ObjectID = 428
	GetEndpointsResponseEncodingDefaultBinary          ObjectID = 431
	CreateSubscriptionRequestEncodingDefaultBinary     ObjectID = 787
	CreateSubscriptionResponseEncodingDefaultBinary    ObjectID = 790
	DeleteSubscriptionsRequestEncodingDefaultBinary    ObjectID = 847
	DeleteSubscriptionsResponseEncodingDefaultBinary   ObjectID = 850
	CreateMonitoredItemsRequestEncodingDefaultBinary   ObjectID = 751
	CreateMonitoredItemsResponseEncodingDefaultBinary  ObjectID = 754
	DeleteMonitoredItemsRequestEncodingDefaultBinary   ObjectID = 781
	DeleteMonitoredItemsResponseEncodingDefaultBinary  ObjectID = 784
	PublishRequestEncodingDefaultBinary                ObjectID = 826
	PublishResponseEncodingDefaultBinary               ObjectID = 829
	OpenSecureChannelRequestEncodingDefaultBinary      ObjectID = 446
	OpenSecureChannelResponseEncodingDefaultBinary     ObjectID = 449
	ServiceFaultEncodingDefaultBinary                  ObjectID = 397
)

// SecurityTokenRequestType distinguishes a fresh channel from a renewal.
type SecurityTokenRequestType int32

const (
	SecurityTokenRequestTypeIssue SecurityTokenRequestType = iota
	SecurityTokenRequestTypeRenew
)
