package redis

import goredis "github.com/redis/go-redis/v9"

const (
	insertOK           = "ok"
	insertReplay       = "replay"
	insertIdempotency  = "idempotency_conflict"
	insertSlotTaken    = "slot_taken"
	insertDoubleBooked = "donor_double_booked"
)

// KEYS: appointment hash, center slot, donor slot, donor index, center-day times
// ARGV: id, donor_id, center_id, date, time, created_at
var insertScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  local cur = redis.call('HMGET', KEYS[1], 'donor_id', 'center_id', 'date', 'time')
  if cur[1] == ARGV[2] and cur[2] == ARGV[3] and cur[3] == ARGV[4] and cur[4] == ARGV[5] then
    return 'replay'
  end
  return 'idempotency_conflict'
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'slot_taken'
end
if redis.call('EXISTS', KEYS[3]) == 1 then
  return 'donor_double_booked'
end
redis.call('HSET', KEYS[1], 'donor_id', ARGV[2], 'center_id', ARGV[3], 'date', ARGV[4], 'time', ARGV[5], 'created_at', ARGV[6])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])
redis.call('RPUSH', KEYS[4], ARGV[1])
redis.call('SADD', KEYS[5], ARGV[5])
return 'ok'
`)

// KEYS: appointment hash, center slot, donor slot, donor index, center-day times
// ARGV: id, time
var deleteScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
redis.call('LREM', KEYS[4], 0, ARGV[1])
redis.call('SREM', KEYS[5], ARGV[2])
return 1
`)
