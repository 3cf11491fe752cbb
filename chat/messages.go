package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"meridia/db"
	"meridia/models"
	"meridia/rdx"
	"meridia/utils"

	"go.mongodb.org/mongo-driver/bson"
)

const bufferKey = "chat:outbox"

// handleSend persists a new message and fans it out. Writes go through the
// redis outbox so a mongo hiccup never blocks the room.
func handleSend(c *Client, in inbound) {
	if in.Text == "" {
		return
	}

	msg := models.Message{
		MessageID: "m" + utils.GenerateRandomString(12),
		Room:      c.room,
		SenderID:  c.userID,
		Text:      in.Text,
		Timestamp: time.Now().UnixMilli(),
	}

	if in.ReplyToID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		var parent models.Message
		if err := db.MessagesCollection.FindOne(ctx, bson.M{"messageid": in.ReplyToID, "room": c.room}).Decode(&parent); err == nil {
			msg.ReplyTo = &models.ReplyRef{ID: parent.MessageID, User: parent.SenderID, Text: parent.Text}
		}
		cancel()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	rdx.RdxPush(bufferKey, string(data))
	c.hub.Broadcast(c.room, data)
}

// handleEdit rewrites the text of the sender's own message.
func handleEdit(c *Client, in inbound) {
	if in.MessageID == "" || in.Text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	editedAt := time.Now().UnixMilli()
	res, err := db.MessagesCollection.UpdateOne(ctx,
		bson.M{"messageid": in.MessageID, "room": c.room, "senderId": c.userID},
		bson.M{"$set": bson.M{"text": in.Text, "editedAt": editedAt}})
	if err != nil || res.MatchedCount == 0 {
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"event":     "edited",
		"messageId": in.MessageID,
		"text":      in.Text,
		"editedAt":  editedAt,
	})
	c.hub.Broadcast(c.room, payload)
}

// handleDelete removes the sender's own message.
func handleDelete(c *Client, in inbound) {
	if in.MessageID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := db.MessagesCollection.DeleteOne(ctx,
		bson.M{"messageid": in.MessageID, "room": c.room, "senderId": c.userID})
	if err != nil || res.DeletedCount == 0 {
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"event":     "deleted",
		"messageId": in.MessageID,
	})
	c.hub.Broadcast(c.room, payload)
}

// FlushOutbox drains the redis outbox into mongo. Run keeps doing so on a
// ticker until ctx ends; the final drain happens on shutdown.
func FlushOutbox(ctx context.Context) {
	for {
		raw, err := rdx.Conn.LPop(ctx, bufferKey).Result()
		if err != nil {
			return
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			log.Println("chat outbox decode error:", err)
			continue
		}
		if _, err := db.MessagesCollection.InsertOne(ctx, msg); err != nil {
			log.Println("chat outbox insert error:", err)
			// Put it back so the next flush retries.
			rdx.RdxPush(bufferKey, raw)
			return
		}
	}
}

// RunFlusher flushes the outbox every few seconds until ctx is cancelled.
func RunFlusher(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			FlushOutbox(flushCtx)
			cancel()
			return
		case <-ticker.C:
			FlushOutbox(ctx)
		}
	}
}
