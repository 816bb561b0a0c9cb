package gacha

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/domain/user"
	"github.com/garagemint/garagemint/internal/errors"
	"github.com/garagemint/garagemint/internal/logging"
	"github.com/garagemint/garagemint/internal/metrics"
	"github.com/garagemint/garagemint/internal/storage"
)

// Minter records asset ownership on the external ledger and returns the
// confirming transaction hash. Any on-chain or network failure surfaces as a
// plain error; no partial-mint states are exposed.
type Minter interface {
	Mint(ctx context.Context, walletAddress, tokenID, modelName, series string) (string, error)
}

// DefaultMintTimeout bounds the external mint call.
const DefaultMintTimeout = 90 * time.Second

// settlementTimeout bounds the post-mint settlement write. Settlement runs on
// a context detached from the request: once the mint is confirmed the local
// bookkeeping must be attempted even if the caller disconnects.
const settlementTimeout = 15 * time.Second

// Service orchestrates draws: catalog validation, balance check, weighted
// reward selection, the external mint and the atomic settlement.
//
// The settlement retrier keeps failed settlements in memory only; a crash
// between mint confirmation and retry success loses the queue and leaves the
// inconsistency to the operator, who still has the tx hash in the logs.
type Service struct {
	store       storage.Store
	catalog     *Catalog
	minter      Minter
	rng         RandomSource
	retrier     *SettlementRetrier
	mintTimeout time.Duration
	log         *logging.Logger
}

// New constructs a gacha service.
func New(store storage.Store, catalog *Catalog, minter Minter, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("gacha")
	}
	return &Service{
		store:       store,
		catalog:     catalog,
		minter:      minter,
		rng:         CryptoSource{},
		mintTimeout: DefaultMintTimeout,
		log:         log,
	}
}

// WithRandomSource replaces the randomness source. Intended for tests.
func (s *Service) WithRandomSource(src RandomSource) {
	if src != nil {
		s.rng = src
	}
}

// WithMintTimeout overrides the mint call timeout.
func (s *Service) WithMintTimeout(d time.Duration) {
	if d > 0 {
		s.mintTimeout = d
	}
}

// AttachRetrier wires the settlement retrier used to recover failed
// settlements. Call before serving requests.
func (s *Service) AttachRetrier(r *SettlementRetrier) {
	s.retrier = r
}

// OpenResult is the outcome of a successful draw.
type OpenResult struct {
	Car            car.Car `json:"car"`
	TxHash         string  `json:"tx_hash"`
	RemainingCoins int64   `json:"remaining_coins"`
}

// OpenBox runs the draw-and-mint pipeline for one box. The mint happens
// strictly before the settlement transaction so no database locks are held
// across the chain call, and a failed mint changes no local state.
func (s *Service) OpenBox(ctx context.Context, userID, boxType string) (*OpenResult, error) {
	box, ok := s.catalog.Box(boxType)
	if !ok {
		metrics.RecordDraw(boxType, "", "invalid_box")
		return nil, errors.InvalidBoxType(boxType, s.catalog.Types())
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.UserNotFound(userID)
		}
		return nil, errors.Internal("load user", err)
	}

	if u.Coins < box.CostCoins {
		metrics.RecordDraw(boxType, "", "insufficient_funds")
		return nil, errors.InsufficientFunds(box.CostCoins, u.Coins)
	}

	reward, err := SelectReward(box.Rewards, s.rng)
	if err != nil {
		return nil, err
	}

	tokenID, err := s.newUniqueTokenID(ctx)
	if err != nil {
		return nil, errors.Internal("generate token id", err)
	}

	mintCtx, cancel := context.WithTimeout(ctx, s.mintTimeout)
	txHash, err := s.minter.Mint(mintCtx, u.WalletAddress, tokenID, reward.ModelName, reward.Series)
	cancel()
	if err != nil {
		metrics.RecordMintFailure()
		metrics.RecordDraw(boxType, reward.Rarity, "mint_failed")
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"box":      boxType,
			"token_id": tokenID,
		}).Warn("mint failed; no coins charged")
		return nil, errors.MintFailed(err)
	}

	minted := car.Car{
		TokenID:    tokenID,
		OwnerID:    u.ID,
		ModelName:  reward.ModelName,
		Series:     reward.Series,
		Rarity:     reward.Rarity,
		MintTxHash: txHash,
		MintedAt:   time.Now().UTC(),
	}

	// The mint is confirmed; settle even if the caller has gone away.
	settleCtx, cancelSettle := context.WithTimeout(context.WithoutCancel(ctx), settlementTimeout)
	defer cancelSettle()

	remaining, err := s.store.SettleDraw(settleCtx, u.ID, box.CostCoins, minted)
	if err != nil {
		return nil, s.settlementError(ctx, u.ID, box.CostCoins, boxType, minted, err)
	}

	metrics.RecordDraw(boxType, reward.Rarity, "ok")
	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"box":      boxType,
		"model":    reward.ModelName,
		"rarity":   reward.Rarity,
		"token_id": tokenID,
		"tx_hash":  txHash,
	}).Info("box opened")

	return &OpenResult{Car: minted, TxHash: txHash, RemainingCoins: remaining}, nil
}

// settlementError classifies a failed settlement after a confirmed mint.
func (s *Service) settlementError(ctx context.Context, userID string, cost int64, boxType string, minted car.Car, err error) error {
	log := s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"box":      boxType,
		"token_id": minted.TokenID,
		"tx_hash":  minted.MintTxHash,
	})

	switch {
	case stderrors.Is(err, storage.ErrInsufficientFunds):
		// A concurrent draw won the balance between our pre-check and the
		// debit guard. The loser is not charged and gets no car; the minted
		// token is orphaned on chain.
		metrics.RecordDraw(boxType, minted.Rarity, "insufficient_funds")
		log.Warn("settlement lost balance race; minted token orphaned")
		current, getErr := s.store.GetUser(ctx, userID)
		if getErr != nil {
			return errors.InsufficientFunds(cost, 0)
		}
		return errors.InsufficientFunds(cost, current.Coins)

	case stderrors.Is(err, storage.ErrNotFound):
		log.Warn("user vanished before settlement; minted token orphaned")
		return errors.UserNotFound(userID)

	case stderrors.Is(err, storage.ErrDuplicateToken):
		// Token id collision slipped past the pre-mint check. Retrying the
		// same settlement cannot succeed, so this goes straight to the
		// operator.
		metrics.RecordSettlementInconsistency()
		log.Error("settlement hit duplicate token id after confirmed mint")
		return errors.SettlementInconsistency(minted.TokenID, minted.MintTxHash, err)

	default:
		metrics.RecordSettlementInconsistency()
		metrics.RecordDraw(boxType, minted.Rarity, "settlement_failed")
		log.WithError(err).Error("settlement failed after confirmed mint")
		if s.retrier != nil {
			s.retrier.Enqueue(PendingSettlement{
				UserID: userID,
				Cost:   cost,
				Car:    minted,
			})
		}
		return errors.SettlementInconsistency(minted.TokenID, minted.MintTxHash, err)
	}
}

// newUniqueTokenID generates a token id and rejects ids already present in
// the store. The storage unique constraint remains the final arbiter.
func (s *Service) newUniqueTokenID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		tokenID, err := NewTokenID()
		if err != nil {
			return "", err
		}
		_, err = s.store.GetCarByTokenID(ctx, tokenID)
		if stderrors.Is(err, storage.ErrNotFound) {
			return tokenID, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", stderrors.New("token id space exhausted")
}

// BoxView is one catalog entry with affordability for a user.
type BoxView struct {
	Type      string        `json:"type"`
	CostCoins int64         `json:"cost_coins"`
	CanAfford bool          `json:"can_afford"`
	Rewards   []RewardEntry `json:"rewards"`
}

// ListBoxes returns the full catalog with per-box affordability. A missing
// user reads as a zero balance; affordability is always computable.
func (s *Service) ListBoxes(ctx context.Context, userID string) ([]BoxView, error) {
	var coins int64
	if userID != "" {
		u, err := s.store.GetUser(ctx, userID)
		switch {
		case err == nil:
			coins = u.Coins
		case stderrors.Is(err, storage.ErrNotFound):
			// Zero balance, nothing to report.
		default:
			return nil, errors.Internal("load user", err)
		}
	}

	types := s.catalog.Types()
	views := make([]BoxView, 0, len(types))
	for _, boxType := range types {
		box := s.catalog.Boxes[boxType]
		views = append(views, BoxView{
			Type:      boxType,
			CostCoins: box.CostCoins,
			CanAfford: coins >= box.CostCoins,
			Rewards:   box.Rewards,
		})
	}
	return views, nil
}

// ListCars returns the user's minted cars in mint order.
func (s *Service) ListCars(ctx context.Context, userID string) ([]car.Car, error) {
	cars, err := s.store.ListCarsByOwner(ctx, userID)
	if err != nil {
		return nil, errors.Internal("list cars", err)
	}
	return cars, nil
}

// EnsureUser provisions the user record from the verified identity: first
// sight grants the catalog's starting coins, later calls only refresh the
// wallet address.
func (s *Service) EnsureUser(ctx context.Context, userID, wallet string) (user.User, error) {
	if userID == "" {
		return user.User{}, errors.Unauthorized("missing subject id")
	}
	if wallet == "" {
		return user.User{}, errors.InvalidRequest("missing wallet address")
	}

	u, err := s.store.UpsertUser(ctx, userID, wallet, s.catalog.StartingCoins)
	if err != nil {
		return user.User{}, errors.Internal("upsert user", err)
	}
	return u, nil
}
