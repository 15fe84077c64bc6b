package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Layout das chaves no Redis:
//
//	bet_id                      contador (INCR) dos IDs de aposta
//	bet:{id}:{event_id}         hash {amount, status}
//	bets:ids                    hash id -> event_id (índice global)
//	bets:event:{event_id}       set de ids (índice secundário por evento)
const (
	counterKey  = "bet_id"
	idsIndexKey = "bets:ids"
)

func betKey(id int64, eventID string) string { return fmt.Sprintf("bet:%d:%s", id, eventID) }

func eventIndexKey(eventID string) string { return "bets:event:" + eventID }

// updateStatusScript só escreve status se o hash existir, evitando criar registro sem amount
var updateStatusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
return 1
`)

// Redis implementa o Store sobre go-redis
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) AllocateID(ctx context.Context) (int64, error) {
	id, err := r.rdb.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, unavailable("incr bet_id", err)
	}
	return id, nil
}

// Put grava hash e índices numa única transação MULTI/EXEC.
// HSETNX garante que amount nunca é sobrescrito num registro existente.
func (r *Redis) Put(ctx context.Context, b Bet) error {
	key := betKey(b.ID, b.EventID)
	id := strconv.FormatInt(b.ID, 10)

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, "amount", b.Amount.String())
		p.HSet(ctx, key, "status", string(b.Status))
		p.HSet(ctx, idsIndexKey, id, b.EventID)
		p.SAdd(ctx, eventIndexKey(b.EventID), id)
		return nil
	})
	if err != nil {
		return unavailable("put bet", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id int64) (Bet, error) {
	eventID, err := r.rdb.HGet(ctx, idsIndexKey, strconv.FormatInt(id, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return Bet{}, ErrNotFound
	}
	if err != nil {
		return Bet{}, unavailable("get bet index", err)
	}

	bets, err := r.load(ctx, []ref{{id: id, eventID: eventID}})
	if err != nil {
		return Bet{}, err
	}
	if len(bets) == 0 {
		return Bet{}, ErrNotFound
	}
	return bets[0], nil
}

func (r *Redis) GetByEvent(ctx context.Context, eventID string) ([]Bet, error) {
	members, err := r.rdb.SMembers(ctx, eventIndexKey(eventID)).Result()
	if err != nil {
		return nil, unavailable("scan event index", err)
	}

	refs := make([]ref, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode event index %s: %w", eventID, err)
		}
		refs = append(refs, ref{id: id, eventID: eventID})
	}
	return r.load(ctx, refs)
}

func (r *Redis) GetAll(ctx context.Context) ([]Bet, error) {
	idx, err := r.rdb.HGetAll(ctx, idsIndexKey).Result()
	if err != nil {
		return nil, unavailable("scan ids index", err)
	}

	refs := make([]ref, 0, len(idx))
	for k, eventID := range idx {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode ids index: %w", err)
		}
		refs = append(refs, ref{id: id, eventID: eventID})
	}
	return r.load(ctx, refs)
}

func (r *Redis) UpdateStatus(ctx context.Context, id int64, eventID string, status Status) error {
	n, err := updateStatusScript.Run(ctx, r.rdb, []string{betKey(id, eventID)}, string(status)).Int()
	if err != nil {
		return unavailable("update status", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

type ref struct {
	id      int64
	eventID string
}

// load busca os hashes em pipeline, ordenados por id; entradas de índice sem hash são ignoradas
func (r *Redis) load(ctx context.Context, refs []ref) ([]Bet, error) {
	if len(refs) == 0 {
		return []Bet{}, nil
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].id < refs[j].id })

	cmds := make([]*redis.MapStringStringCmd, len(refs))
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, rf := range refs {
			cmds[i] = p.HGetAll(ctx, betKey(rf.id, rf.eventID))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("load bets", err)
	}

	out := make([]Bet, 0, len(refs))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		b, err := decodeBet(refs[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeBet(rf ref, fields map[string]string) (Bet, error) {
	amount, err := NewAmount(fields["amount"])
	if err != nil {
		return Bet{}, fmt.Errorf("decode amount of bet %d: %w", rf.id, err)
	}
	status, err := ParseStatus(fields["status"])
	if err != nil {
		return Bet{}, fmt.Errorf("decode status of bet %d: %w", rf.id, err)
	}
	return Bet{ID: rf.id, EventID: rf.eventID, Amount: amount, Status: status}, nil
}
