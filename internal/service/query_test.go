package service_test

import (
	"github.com/punchamoorthee/tenmo/internal/domain"
)

func (s *LedgerSuite) TestHistoryForOrdersAndLabelsTransfers() {
	alice := s.open("alice", "100.00")
	bob := s.open("bob", "100.00")
	carol := s.open("carol", "100.00")

	t1, err := s.ledger.SendFunds(s.ctx, alice.ID, bob.ID, dec("10.00"))
	s.NoError(err)
	_, err = s.ledger.SendFunds(s.ctx, bob.ID, carol.ID, dec("1.00"))
	s.NoError(err)
	t2, err := s.ledger.SendFunds(s.ctx, bob.ID, alice.ID, dec("4.00"))
	s.NoError(err)

	history, err := s.queries.HistoryFor(s.ctx, alice.ID)
	s.NoError(err)
	s.Len(history, 2)

	s.Equal(t1.ID, history[0].Transfer.ID)
	s.Equal(domain.DirectionOutgoing, history[0].Direction)
	s.Equal("bob", history[0].Counterparty)

	s.Equal(t2.ID, history[1].Transfer.ID)
	s.Equal(domain.DirectionIncoming, history[1].Direction)
	s.Equal("bob", history[1].Counterparty)

	balance, err := s.queries.BalanceOf(s.ctx, alice.UserID)
	s.NoError(err)
	s.True(balance.Equal(dec("94.00")), "got %s", balance)
}

func (s *LedgerSuite) TestHistoryForEmptyAndUnknownAccount() {
	alice := s.open("alice", "1.00")

	history, err := s.queries.HistoryFor(s.ctx, alice.ID)
	s.NoError(err)
	s.NotNil(history)
	s.Empty(history)

	_, err = s.queries.HistoryFor(s.ctx, 9999)
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *LedgerSuite) TestDetailIsStable() {
	alice := s.open("alice", "10.00")
	bob := s.open("bob", "0")

	sent, err := s.ledger.SendFunds(s.ctx, alice.ID, bob.ID, dec("2.50"))
	s.NoError(err)

	first, err := s.queries.Detail(s.ctx, sent.ID)
	s.NoError(err)
	second, err := s.queries.Detail(s.ctx, sent.ID)
	s.NoError(err)
	s.Equal(first, second)
	s.True(first.Amount.Equal(dec("2.50")))

	_, err = s.queries.Detail(s.ctx, 1)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *LedgerSuite) TestBalanceAndAccountOfUnknownUser() {
	_, err := s.queries.BalanceOf(s.ctx, 4242)
	s.ErrorIs(err, domain.ErrAccountNotFound)
	_, err = s.queries.AccountOf(s.ctx, 4242)
	s.ErrorIs(err, domain.ErrAccountNotFound)

	alice := s.open("alice", "3.00")
	acc, err := s.queries.AccountOf(s.ctx, alice.UserID)
	s.NoError(err)
	s.Equal(alice.ID, acc.ID)
}

func (s *LedgerSuite) TestPendingForListsOnlyRequestsAwaitingThePayer() {
	alice := s.open("alice", "50.00")
	bob := s.open("bob", "50.00")

	open, err := s.ledger.RequestFunds(s.ctx, alice.ID, bob.ID, dec("5.00"))
	s.NoError(err)
	closed, err := s.ledger.RequestFunds(s.ctx, alice.ID, bob.ID, dec("6.00"))
	s.NoError(err)
	_, err = s.ledger.RejectRequest(s.ctx, closed.ID)
	s.NoError(err)
	_, err = s.ledger.SendFunds(s.ctx, bob.ID, alice.ID, dec("1.00"))
	s.NoError(err)

	pending, err := s.queries.PendingFor(s.ctx, bob.ID)
	s.NoError(err)
	s.Len(pending, 1)
	s.Equal(open.ID, pending[0].ID)

	// the requester is not the one who has to act
	pending, err = s.queries.PendingFor(s.ctx, alice.ID)
	s.NoError(err)
	s.Empty(pending)
}
