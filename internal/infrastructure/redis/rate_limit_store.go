// Package redis implementa el almacén de ventanas del limitador sobre Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

const keyPrefix = "ratelimit:sales:"

var _ repository.RateLimitStore = (*RateLimitStore)(nil)

// hitScript aplica la ventana fija dentro de Redis en un solo paso.
// KEYS[1] llave del usuario; ARGV: ahora (ms), cuota, duración de la ventana (ms).
// Devuelve {admitida (0|1), count, reset_at (ms)}. Un rechazo no modifica la llave.
var hitScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local quota = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local vals = redis.call('HMGET', KEYS[1], 'count', 'reset_at')
local count = tonumber(vals[1])
local reset = tonumber(vals[2])
if count == nil or reset == nil or now >= reset then
	reset = now + window
	redis.call('HSET', KEYS[1], 'count', 1, 'reset_at', reset)
	redis.call('PEXPIREAT', KEYS[1], reset)
	return {1, 1, reset}
end
if count < quota then
	count = count + 1
	redis.call('HSET', KEYS[1], 'count', count)
	return {1, count, reset}
end
return {0, count, reset}
`)

// RateLimitStore guarda cada ventana en un hash {count, reset_at} que expira con la ventana.
// La lectura-modificación-escritura corre como script Lua: Redis lo ejecuta de forma atómica,
// así que las solicitudes concurrentes de un mismo usuario no compiten ni se reintentan.
type RateLimitStore struct {
	client goredis.UniversalClient
}

// NewRateLimitStore construye el almacén sobre un cliente ya conectado.
func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Hit implementa repository.RateLimitStore.
func (s *RateLimitStore) Hit(ctx context.Context, userID string, now time.Time, rule entity.RateLimitRule) (entity.RateLimitWindow, bool, error) {
	key := keyPrefix + userID
	res, err := hitScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(), rule.Quota, rule.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return entity.RateLimitWindow{}, false, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 3 {
		return entity.RateLimitWindow{}, false, fmt.Errorf("redis rate limit: respuesta inesperada para %s: %v", key, res)
	}
	window := entity.RateLimitWindow{UserID: userID, Count: int(res[1]), ResetAt: time.UnixMilli(res[2])}
	return window, res[0] == 1, nil
}

// NewClient crea el cliente y verifica la conexión con PING.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
