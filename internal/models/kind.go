package models

// Kind names one of the synchronised entity kinds.
type Kind string

const (
	KindProduct         Kind = "product"
	KindTransaction     Kind = "transaction"
	KindTransactionItem Kind = "transaction_item"
	KindSupplier        Kind = "supplier"
	KindPurchase        Kind = "purchase"
)

// PushOrder is the fixed order in which dirty kinds are sent to the server.
// Transaction items travel inside their parent transaction's payload.
var PushOrder = []Kind{KindProduct, KindTransaction, KindSupplier, KindPurchase}

// PullOrder is the fixed order in which server state is merged locally.
var PullOrder = []Kind{KindProduct, KindSupplier, KindTransaction}

// LockOrder is the order in which per-kind locks are taken by multi-kind writes.
var LockOrder = []Kind{KindProduct, KindTransaction, KindTransactionItem, KindSupplier, KindPurchase}
