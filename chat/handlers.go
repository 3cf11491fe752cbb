package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"meridia/db"
	"meridia/filemgr"
	"meridia/models"
	"meridia/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler binds the hub to HTTP.
type Handler struct {
	Hub *Hub
}

// roomAccess verifies the caller participates in the entity behind the room.
// Rooms are "<entityType>:<entityId>".
func roomAccess(ctx context.Context, room, userID string) error {
	parts := strings.SplitN(room, ":", 2)
	if len(parts) != 2 {
		return errors.New("malformed room")
	}
	entityType, entityID := parts[0], parts[1]

	switch entityType {
	case "appointment":
		err := db.AppointmentsCollection.FindOne(ctx, bson.M{
			"id": entityID,
			"$or": []bson.M{
				{"doctorId": userID},
				{"patientId": userID},
			},
		}).Err()
		if err != nil {
			return errors.New("not a participant")
		}
	case "order":
		err := db.OrderCollection.FindOne(ctx, bson.M{
			"orderId": entityID,
			"$or": []bson.M{
				{"buyer.userId": userID},
				{"seller.userId": userID},
			},
		}).Err()
		if err != nil {
			return errors.New("not a participant")
		}
	default:
		return errors.New("unknown room type")
	}
	return nil
}

// ensureRoom records the conversation the first time someone joins it.
func ensureRoom(ctx context.Context, room, userID string) {
	parts := strings.SplitN(room, ":", 2)
	err := db.ChatsCollection.FindOne(ctx, bson.M{"room": room}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		chat := models.Chat{
			Room:       room,
			EntityType: parts[0],
			EntityID:   parts[1],
			Users:      []string{userID},
			CreatedAt:  time.Now(),
		}
		if _, err := db.ChatsCollection.InsertOne(ctx, chat); err != nil {
			log.Println("ensureRoom insert error:", err)
		}
		return
	}
	db.ChatsCollection.UpdateOne(ctx, bson.M{"room": room},
		bson.M{"$addToSet": bson.M{"users": userID}})
}

// Join upgrades to a websocket bound to one room.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	room := ps.ByName("room")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	if err := roomAccess(ctx, room, userID); err != nil {
		cancel()
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	ensureRoom(ctx, room, userID)
	cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("chat upgrade error:", err)
		return
	}

	client := newClient(h.Hub, conn, room, userID)
	h.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// History returns the most recent messages in a room, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	room := ps.ByName("room")

	if err := roomAccess(ctx, room, userID); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	cursor, err := db.MessagesCollection.Find(ctx, bson.M{"room": room},
		options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(100))
	if err != nil {
		http.Error(w, "Could not retrieve messages", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		http.Error(w, "Error reading messages", http.StatusInternalServerError)
		return
	}
	// Oldest first for rendering.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if len(msgs) == 0 {
		msgs = []models.Message{}
	}

	utils.RespondWithJSON(w, http.StatusOK, msgs)
}

// Attach uploads a file into a room and broadcasts the resulting message.
func (h *Handler) Attach(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	room := ps.ByName("room")

	if err := roomAccess(ctx, room, userID); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	name, err := filemgr.SaveFormFile(r.MultipartForm, "file", filemgr.EntityChat, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fileType := "file"
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		if mime := files[0].Header.Get("Content-Type"); strings.HasPrefix(mime, "image/") {
			fileType = "image"
		}
	}

	msg := models.Message{
		MessageID: "m" + utils.GenerateRandomString(12),
		Room:      room,
		SenderID:  userID,
		FileURL:   "/static/uploads/chat/files/" + name,
		FileType:  fileType,
		Timestamp: time.Now().UnixMilli(),
	}
	if _, err := db.MessagesCollection.InsertOne(ctx, msg); err != nil {
		log.Println("Attach insert error:", err)
		http.Error(w, "Failed to store message", http.StatusInternalServerError)
		return
	}

	if data, err := json.Marshal(msg); err == nil {
		h.Hub.Broadcast(room, data)
	}

	utils.RespondWithJSON(w, http.StatusCreated, msg)
}

// NotifyRoom lets other packages push structured events into a room.
func (h *Handler) NotifyRoom(room string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Hub.Broadcast(room, data)
}
