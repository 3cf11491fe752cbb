package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection            *mongo.Collection
	ProductsCollection        *mongo.Collection
	BatchesCollection         *mongo.Collection
	CartCollection            *mongo.Collection
	OrderCollection           *mongo.Collection
	TransactionCollection     *mongo.Collection
	PaymentSessionsCollection *mongo.Collection
	IdempotencyCollection     *mongo.Collection
	SlotCollection            *mongo.Collection
	AppointmentsCollection    *mongo.Collection
	ExtensionsCollection      *mongo.Collection
	ChatsCollection           *mongo.Collection
	MessagesCollection        *mongo.Collection
	Client                    *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("db: no .env file found; using system environment")
	}

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "meridiadb"
	}

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	Client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database(dbName)
	UserCollection = database.Collection("users")
	ProductsCollection = database.Collection("products")
	BatchesCollection = database.Collection("batches")
	CartCollection = database.Collection("carts")
	OrderCollection = database.Collection("orders")
	TransactionCollection = database.Collection("transactions")
	PaymentSessionsCollection = database.Collection("paysessions")
	IdempotencyCollection = database.Collection("idempotency")
	SlotCollection = database.Collection("slots")
	AppointmentsCollection = database.Collection("appointments")
	ExtensionsCollection = database.Collection("extensions")
	ChatsCollection = database.Collection("chats")
	MessagesCollection = database.Collection("messages")
}
