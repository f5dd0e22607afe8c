package admin

import (
	"context"
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

const defaultCardDesign = "standard"

// IssueCardRequest asks for a new card on a user.
type IssueCardRequest struct {
	UserID        string
	CardType      models.CardType
	LinkedAccount string
	Design        string
}

// IssueCard generates a card for the user and appends it to their cards. A
// debit card must be linked to one of the user's own accounts; a credit card
// may be unlinked, but any link must also be the user's own.
func (s *Service) IssueCard(ctx context.Context, actor auth.Actor, req IssueCardRequest) (models.Card, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.Card{}, err
	}
	if !req.CardType.Valid() {
		return models.Card{}, apperr.New(apperr.Validation, "cardType must be debit or credit")
	}
	linked := strings.TrimSpace(req.LinkedAccount)
	if req.CardType == models.DebitCard && linked == "" {
		return models.Card{}, apperr.New(apperr.InvalidLinkedAccount, "debit cards must be linked to one of the user's accounts")
	}
	design := strings.TrimSpace(req.Design)
	if design == "" {
		design = defaultCardDesign
	}

	var card models.Card
	err := s.withRetry(ctx, func(field string) bool { return field == storage.FieldCardNumber }, func(repo storage.Repository) error {
		user, err := repo.LockUser(ctx, req.UserID)
		if err != nil {
			return apperr.FromStorage(err, "user")
		}
		if linked != "" {
			if _, ok := user.AccountByNumber(linked); !ok {
				return apperr.New(apperr.InvalidLinkedAccount, "linked account does not belong to this user")
			}
		}
		card, err = s.newCard(ctx, repo, user, req.CardType, linked, design)
		if err != nil {
			return err
		}
		return repo.AddCard(ctx, user.ID, card)
	})
	if err != nil {
		return models.Card{}, apperr.FromStorage(err, "user")
	}
	return card, nil
}

func (s *Service) newCard(ctx context.Context, repo storage.Repository, user models.User, cardType models.CardType, linked, design string) (models.Card, error) {
	number, err := s.gen.CardNumber(ctx, repo.CardNumberExists)
	if err != nil {
		return models.Card{}, err
	}
	cvv, err := s.gen.CVV(cardType)
	if err != nil {
		return models.Card{}, apperr.Wrap(apperr.Internal, err, "generate cvv")
	}
	cvvHash, err := s.hasher.Hash(cvv)
	if err != nil {
		return models.Card{}, apperr.Wrap(apperr.Internal, err, "hash cvv")
	}
	return models.Card{
		ID:            s.newID(),
		Type:          cardType,
		Number:        number,
		LastFour:      number[len(number)-4:],
		HolderName:    strings.ToUpper(user.FullName),
		Expires:       s.gen.Expiry(),
		CVVHash:       cvvHash,
		Status:        models.CardActive,
		Design:        design,
		LinkedAccount: linked,
		IssuedAt:      s.now().UTC(),
	}, nil
}
