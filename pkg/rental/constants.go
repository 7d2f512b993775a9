package rental

const (
	operationCreate      = "create"
	operationSettle      = "settle"
	operationCancel      = "cancel"
	operationReconcile   = "reconcile"
	operationAddModel    = "add_model"
	operationAddUnit     = "add_unit"
	operationDeleteModel = "delete_model"
	operationPublish     = "publish"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
