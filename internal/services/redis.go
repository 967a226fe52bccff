package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/campusride/rideshare-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetRoomPresence stores the number of live connections in a ride's chat room
func SetRoomPresence(ctx context.Context, rideID uint, count int) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("room:presence:%d", rideID)
	if count == 0 {
		return RedisClient.Del(ctx, key).Err()
	}
	return RedisClient.Set(ctx, key, count, time.Hour).Err()
}

// GetRoomPresence retrieves the number of live connections in a ride's chat room
func GetRoomPresence(ctx context.Context, rideID uint) (int, error) {
	if RedisClient == nil {
		return 0, nil
	}
	key := fmt.Sprintf("room:presence:%d", rideID)
	count, err := RedisClient.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

// PublishChatMessage publishes a persisted chat message to Redis pub/sub
func PublishChatMessage(ctx context.Context, msg *models.Message) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(map[string]interface{}{
		"rideId":    msg.RideID,
		"sender":    msg.Sender,
		"message":   msg.Body,
		"timestamp": msg.CreatedAt.Unix(),
	})
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "chat:messages", data).Err()
}

// PublishRideUpdate publishes a ride lifecycle event to Redis pub/sub
func PublishRideUpdate(ctx context.Context, rideID uint, event string, data map[string]interface{}) error {
	if RedisClient == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"rideId":    rideID,
		"event":     event,
		"data":      data,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "ride:updates", payload).Err()
}

func publishRoomPresence(rideID uint, count int) {
	if err := SetRoomPresence(context.Background(), rideID, count); err != nil {
		log.Printf("Failed to update room presence for ride %d: %v", rideID, err)
	}
}
