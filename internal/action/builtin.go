package action

// RegisterBuiltins adds every built-in action type to r.
func RegisterBuiltins(r *Registry) {
	r.Register("Email", EmailDescriptor, NewEmailAction)
	r.Register("Queue", QueueDescriptor, NewQueueAction)
}
