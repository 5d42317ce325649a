package swap

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

// The redis stores keep each record as a JSON string plus sorted-set indexes.
// Redis cannot roll back a MULTI block, so these stores are always paired with
// a pass-through coordinator scope; guarded writes use WATCH instead.

type keyspace struct {
	prefix string
}

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = "slotswap"
	}
	return keyspace{prefix: prefix}
}

func (k keyspace) slot(id uuid.UUID) string { return k.prefix + ":slot:" + id.String() }
func (k keyspace) slotsByOwner(id uuid.UUID) string { return k.prefix + ":slots:owner:" + id.String() }
func (k keyspace) offerable() string { return k.prefix + ":slots:offerable" }
func (k keyspace) request(id uuid.UUID) string { return k.prefix + ":swapreq:" + id.String() }
func (k keyspace) requestsByTarget(id uuid.UUID) string {
	return k.prefix + ":swapreqs:target:" + id.String()
}
func (k keyspace) requestsByRequester(id uuid.UUID) string {
	return k.prefix + ":swapreqs:requester:" + id.String()
}
func (k keyspace) requestsBySlot(id uuid.UUID) string {
	return k.prefix + ":swapreqs:slot:" + id.String()
}
func (k keyspace) events(requestID uuid.UUID) string {
	return k.prefix + ":swapevents:" + requestID.String()
}

func ctxOf(dbc dbctx.Context) context.Context {
	if dbc.Ctx == nil {
		return context.Background()
	}
	return dbc.Ctx
}

// RedisProber reports that redis offers no multi-key rollback after checking
// the server is reachable.
type RedisProber struct {
	Client redis.UniversalClient
}

func (p RedisProber) SupportsTransactions(ctx context.Context) (bool, error) {
	if p.Client == nil {
		return false, errors.New("nil redis client")
	}
	if err := p.Client.Ping(ctx).Err(); err != nil {
		return false, err
	}
	return false, nil
}

// ---- slots ----

type redisSlotRepo struct {
	rdb  redis.UniversalClient
	keys keyspace
	log  *logger.Logger
}

func NewRedisSlotRepo(rdb redis.UniversalClient, prefix string, baseLog *logger.Logger) SlotRepo {
	return &redisSlotRepo{rdb: rdb, keys: newKeyspace(prefix), log: baseLog.With("repo", "RedisSlotRepo")}
}

func encodeSlot(row *types.Slot) ([]byte, error) {
	cp := *row
	cp.Owner = nil
	return json.Marshal(&cp)
}

func decodeSlot(raw string) (*types.Slot, error) {
	var row types.Slot
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *redisSlotRepo) queueSlotWrite(ctx context.Context, p redis.Pipeliner, old, row *types.Slot, payload []byte) {
	p.Set(ctx, r.keys.slot(row.ID), payload, 0)
	if old != nil && old.OwnerID != row.OwnerID {
		p.ZRem(ctx, r.keys.slotsByOwner(old.OwnerID), row.ID.String())
	}
	p.ZAdd(ctx, r.keys.slotsByOwner(row.OwnerID), redis.Z{Score: float64(row.StartTime.Unix()), Member: row.ID.String()})
	if row.Status == types.SlotStatusOfferable {
		p.ZAdd(ctx, r.keys.offerable(), redis.Z{Score: float64(row.StartTime.Unix()), Member: row.ID.String()})
	} else {
		p.ZRem(ctx, r.keys.offerable(), row.ID.String())
	}
}

func (r *redisSlotRepo) Create(dbc dbctx.Context, rows []*types.Slot) ([]*types.Slot, error) {
	if len(rows) == 0 {
		return []*types.Slot{}, nil
	}
	ctx := ctxOf(dbc)
	now := time.Now().UTC()
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, row := range rows {
			if row == nil {
				continue
			}
			if row.ID == uuid.Nil {
				row.ID = uuid.New()
			}
			row.CreatedAt, row.UpdatedAt = now, now
			payload, err := encodeSlot(row)
			if err != nil {
				return err
			}
			r.queueSlotWrite(ctx, p, nil, row, payload)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *redisSlotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Slot, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	raw, err := r.rdb.Get(ctxOf(dbc), r.keys.slot(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSlot(raw)
}

// LockByID has no row locks to take; slot status carries the lock.
func (r *redisSlotRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Slot, error) {
	return r.GetByID(dbc, id)
}

func (r *redisSlotRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Slot, error) {
	var out []*types.Slot
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.slot(id))
	}
	vals, err := r.rdb.MGet(ctxOf(dbc), keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		row, err := decodeSlot(s)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *redisSlotRepo) Save(dbc dbctx.Context, row *types.Slot) error {
	if row == nil {
		return nil
	}
	ctx := ctxOf(dbc)
	key := r.keys.slot(row.ID)
	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var old *types.Slot
		raw, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if old, err = decodeSlot(raw); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		payload, err := encodeSlot(row)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			r.queueSlotWrite(ctx, p, old, row, payload)
			return nil
		})
		return err
	}, key)
}

func (r *redisSlotRepo) SaveIfStatus(dbc dbctx.Context, row *types.Slot, expected types.SlotStatus) (bool, error) {
	if row == nil || row.ID == uuid.Nil {
		return false, nil
	}
	ctx := ctxOf(dbc)
	key := r.keys.slot(row.ID)
	applied := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		old, err := decodeSlot(raw)
		if err != nil {
			return err
		}
		if old.Status != expected {
			return nil
		}
		row.CreatedAt = old.CreatedAt
		row.UpdatedAt = time.Now().UTC()
		payload, err := encodeSlot(row)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			r.queueSlotWrite(ctx, p, old, row, payload)
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *redisSlotRepo) DeleteIfStatus(dbc dbctx.Context, id uuid.UUID, allowed ...types.SlotStatus) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	ctx := ctxOf(dbc)
	key := r.keys.slot(id)
	sid := id.String()
	deleted := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		old, err := decodeSlot(raw)
		if err != nil {
			return err
		}
		if len(allowed) > 0 && !slices.Contains(allowed, old.Status) {
			return nil
		}
		var del *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			del = p.Del(ctx, key)
			p.ZRem(ctx, r.keys.slotsByOwner(old.OwnerID), sid)
			p.ZRem(ctx, r.keys.offerable(), sid)
			return nil
		})
		if err == nil {
			deleted = del.Val() > 0
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *redisSlotRepo) listIndex(dbc dbctx.Context, key string) ([]*types.Slot, error) {
	members, err := r.rdb.ZRange(ctxOf(dbc), key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows, err := r.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StartTime.Before(rows[j].StartTime) })
	return rows, nil
}

func (r *redisSlotRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Slot, error) {
	if ownerID == uuid.Nil {
		return []*types.Slot{}, nil
	}
	rows, err := r.listIndex(dbc, r.keys.slotsByOwner(ownerID))
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, row := range rows {
		if row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *redisSlotRepo) ListOfferableExcludingOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Slot, error) {
	rows, err := r.listIndex(dbc, r.keys.offerable())
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, row := range rows {
		if row.Status == types.SlotStatusOfferable && row.OwnerID != ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

// ---- swap requests ----

type redisSwapRequestRepo struct {
	rdb  redis.UniversalClient
	keys keyspace
	log  *logger.Logger
}

func NewRedisSwapRequestRepo(rdb redis.UniversalClient, prefix string, baseLog *logger.Logger) SwapRequestRepo {
	return &redisSwapRequestRepo{rdb: rdb, keys: newKeyspace(prefix), log: baseLog.With("repo", "RedisSwapRequestRepo")}
}

func encodeRequest(row *types.SwapRequest) ([]byte, error) {
	cp := *row
	cp.Requester, cp.TargetOwner, cp.RequesterSlot, cp.TargetSlot = nil, nil, nil, nil
	return json.Marshal(&cp)
}

func decodeRequest(raw string) (*types.SwapRequest, error) {
	var row types.SwapRequest
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *redisSwapRequestRepo) Create(dbc dbctx.Context, row *types.SwapRequest) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now
	payload, err := encodeRequest(row)
	if err != nil {
		return err
	}
	ctx := ctxOf(dbc)
	id := row.ID.String()
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.keys.request(row.ID), payload, 0)
		p.SAdd(ctx, r.keys.requestsByTarget(row.TargetOwnerID), id)
		p.SAdd(ctx, r.keys.requestsByRequester(row.RequesterID), id)
		p.SAdd(ctx, r.keys.requestsBySlot(row.RequesterSlotID), id)
		p.SAdd(ctx, r.keys.requestsBySlot(row.TargetSlotID), id)
		return nil
	})
	return err
}

func (r *redisSwapRequestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SwapRequest, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	raw, err := r.rdb.Get(ctxOf(dbc), r.keys.request(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRequest(raw)
}

func (r *redisSwapRequestRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.SwapRequest, error) {
	return r.GetByID(dbc, id)
}

func (r *redisSwapRequestRepo) Save(dbc dbctx.Context, row *types.SwapRequest) error {
	if row == nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	payload, err := encodeRequest(row)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctxOf(dbc), r.keys.request(row.ID), payload, 0).Err()
}

func (r *redisSwapRequestRepo) SaveIfStatus(dbc dbctx.Context, row *types.SwapRequest, expected types.RequestStatus) (bool, error) {
	if row == nil || row.ID == uuid.Nil {
		return false, nil
	}
	ctx := ctxOf(dbc)
	key := r.keys.request(row.ID)
	applied := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		old, err := decodeRequest(raw)
		if err != nil {
			return err
		}
		if old.Status != expected {
			return nil
		}
		row.CreatedAt = old.CreatedAt
		row.UpdatedAt = time.Now().UTC()
		payload, err := encodeRequest(row)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *redisSwapRequestRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return r.deleteGuarded(dbc, id, nil)
}

func (r *redisSwapRequestRepo) DeleteIfStatus(dbc dbctx.Context, id uuid.UUID, expected types.RequestStatus) (bool, error) {
	return r.deleteGuarded(dbc, id, &expected)
}

func (r *redisSwapRequestRepo) deleteGuarded(dbc dbctx.Context, id uuid.UUID, expected *types.RequestStatus) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	ctx := ctxOf(dbc)
	key := r.keys.request(id)
	sid := id.String()
	deleted := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		row, err := decodeRequest(raw)
		if err != nil {
			return err
		}
		if expected != nil && row.Status != *expected {
			return nil
		}
		var del *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			del = p.Del(ctx, key)
			p.SRem(ctx, r.keys.requestsByTarget(row.TargetOwnerID), sid)
			p.SRem(ctx, r.keys.requestsByRequester(row.RequesterID), sid)
			p.SRem(ctx, r.keys.requestsBySlot(row.RequesterSlotID), sid)
			p.SRem(ctx, r.keys.requestsBySlot(row.TargetSlotID), sid)
			return nil
		})
		if err == nil {
			deleted = del.Val() > 0
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *redisSwapRequestRepo) listPending(dbc dbctx.Context, key string) ([]*types.SwapRequest, error) {
	ctx := ctxOf(dbc)
	members, err := r.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := []*types.SwapRequest{}
	if len(members) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		keys = append(keys, r.keys.request(id))
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		row, err := decodeRequest(s)
		if err != nil {
			return nil, err
		}
		if row.Pending() {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *redisSwapRequestRepo) ListPendingByTargetOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.SwapRequest, error) {
	return r.listPending(dbc, r.keys.requestsByTarget(ownerID))
}

func (r *redisSwapRequestRepo) ListPendingByRequester(dbc dbctx.Context, requesterID uuid.UUID) ([]*types.SwapRequest, error) {
	return r.listPending(dbc, r.keys.requestsByRequester(requesterID))
}

func (r *redisSwapRequestRepo) ListPendingBySlot(dbc dbctx.Context, slotID uuid.UUID) ([]*types.SwapRequest, error) {
	return r.listPending(dbc, r.keys.requestsBySlot(slotID))
}

// ---- audit events ----

type redisSwapEventRepo struct {
	rdb  redis.UniversalClient
	keys keyspace
	log  *logger.Logger
}

func NewRedisSwapEventRepo(rdb redis.UniversalClient, prefix string, baseLog *logger.Logger) SwapEventRepo {
	return &redisSwapEventRepo{rdb: rdb, keys: newKeyspace(prefix), log: baseLog.With("repo", "RedisSwapEventRepo")}
}

func (r *redisSwapEventRepo) Append(dbc dbctx.Context, row *types.SwapEvent) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if len(row.Payload) == 0 {
		row.Payload = EventPayload(nil)
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return r.rdb.RPush(ctxOf(dbc), r.keys.events(row.SwapRequestID), payload).Err()
}

func (r *redisSwapEventRepo) ListByRequest(dbc dbctx.Context, requestID uuid.UUID) ([]*types.SwapEvent, error) {
	out := []*types.SwapEvent{}
	if requestID == uuid.Nil {
		return out, nil
	}
	vals, err := r.rdb.LRange(ctxOf(dbc), r.keys.events(requestID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		var row types.SwapEvent
		if err := json.Unmarshal([]byte(v), &row); err != nil {
			return nil, err
		}
		out = append(out, &row)
	}
	return out, nil
}
