package events

// Watermill topics carrying domain events between the mutation layer and
// the bus. One topic per entity type.
const (
	TopicUserEvents    = "events.user"
	TopicForumEvents   = "events.forum"
	TopicPostEvents    = "events.post"
	TopicCommentEvents = "events.comment"
)

// topicFor maps an event to the watermill topic it travels on.
func topicFor(e Event) string {
	switch e.Entity() {
	case EntityUser:
		return TopicUserEvents
	case EntityForum:
		return TopicForumEvents
	case EntityPost:
		return TopicPostEvents
	default:
		return TopicCommentEvents
	}
}
