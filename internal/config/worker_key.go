package config

type WorkerKeyStruct struct {
	PersistInteractionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistInteractionsQueue: "persist_interactions_queue",
}
