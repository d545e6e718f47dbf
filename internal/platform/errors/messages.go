package errors

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supportedLocales = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

func init() {
	en := language.AmericanEnglish
	message.SetString(en, string(CodeUnknown), "Something went wrong.")
	message.SetString(en, string(CodeValidation), "The request is malformed.")
	message.SetString(en, string(CodeIllegalMove), "That move is not allowed.")
	message.SetString(en, string(CodeConcurrencyConflict), "The game changed while your move was processed. Try again.")
	message.SetString(en, string(CodeStoreUnavailable), "The game is temporarily unavailable.")
	message.SetString(en, string(CodeNotFound), "Room not found.")
	message.SetString(en, string(CodeUnauthenticated), "Authentication required.")
	message.SetString(en, string(CodePermissionDenied), "You cannot act for another player.")
	message.SetString(en, string(CodeIntegrityViolation), "The game log failed verification.")
	message.SetString(en, "NotYourTurn", "It is not your turn.")
	message.SetString(en, "InsufficientFunds", "You do not have enough money.")
	message.SetString(en, "AlreadyOwned", "That property already has an owner.")
	message.SetString(en, "NotOwner", "You do not own that property.")
	message.SetString(en, "IncompleteGroup", "You must own every property in the group first.")
	message.SetString(en, "NoCardsAvailable", "You have no steal cards left.")
	message.SetString(en, "GameAlreadyStarted", "The game has already started.")
	message.SetString(en, "GameNotStarted", "The game has not started yet.")
	message.SetString(en, "AlreadyRolled", "You already rolled this turn.")
	message.SetString(en, "RoomFull", "The room is full.")
	message.SetString(en, "NotHost", "Only the host can start the game.")
	message.SetString(en, "NotEnoughPlayers", "At least two players are needed to start.")
	message.SetString(en, "UnknownPlayer", "You are not part of this game.")
	message.SetString(en, "PlayerBankrupt", "Bankrupt players cannot act.")
	message.SetString(en, "MaxDevelopment", "That property cannot be developed further.")
	message.SetString(en, "CryptRequiresGraveyards", "A crypt needs four graveyards first.")
	message.SetString(en, "AlreadyHasCrypt", "That property already has a crypt.")
	message.SetString(en, "NotDevelopable", "That property cannot be developed.")
	message.SetString(en, "Unowned", "Nobody owns that property.")
	message.SetString(en, "UnknownTarget", "That player is not in this game.")
	message.SetString(en, "InvalidTarget", "You cannot target yourself.")
	message.SetString(en, "UnknownProperty", "That square cannot be owned.")
	message.SetString(en, "NoRentDue", "No rent is due for that property.")

	pt := language.BrazilianPortuguese
	message.SetString(pt, string(CodeUnknown), "Algo deu errado.")
	message.SetString(pt, string(CodeValidation), "A requisição é inválida.")
	message.SetString(pt, string(CodeIllegalMove), "Essa jogada não é permitida.")
	message.SetString(pt, string(CodeConcurrencyConflict), "O jogo mudou enquanto sua jogada era processada. Tente novamente.")
	message.SetString(pt, string(CodeStoreUnavailable), "O jogo está temporariamente indisponível.")
	message.SetString(pt, string(CodeNotFound), "Sala não encontrada.")
	message.SetString(pt, string(CodeUnauthenticated), "Autenticação necessária.")
	message.SetString(pt, string(CodePermissionDenied), "Você não pode agir por outro jogador.")
	message.SetString(pt, string(CodeIntegrityViolation), "O registro do jogo falhou na verificação.")
	message.SetString(pt, "NotYourTurn", "Não é a sua vez.")
	message.SetString(pt, "InsufficientFunds", "Você não tem dinheiro suficiente.")
	message.SetString(pt, "AlreadyOwned", "Essa propriedade já tem dono.")
	message.SetString(pt, "NotOwner", "Você não é dono dessa propriedade.")
	message.SetString(pt, "IncompleteGroup", "Você precisa ter todas as propriedades do grupo.")
	message.SetString(pt, "NoCardsAvailable", "Você não tem mais cartas de roubo.")
	message.SetString(pt, "GameAlreadyStarted", "O jogo já começou.")
	message.SetString(pt, "GameNotStarted", "O jogo ainda não começou.")
	message.SetString(pt, "AlreadyRolled", "Você já rolou os dados nesta vez.")
	message.SetString(pt, "RoomFull", "A sala está cheia.")
	message.SetString(pt, "NotHost", "Somente o anfitrião pode iniciar o jogo.")
	message.SetString(pt, "NotEnoughPlayers", "São necessários pelo menos dois jogadores.")
	message.SetString(pt, "UnknownPlayer", "Você não faz parte deste jogo.")
	message.SetString(pt, "PlayerBankrupt", "Jogadores falidos não podem agir.")
	message.SetString(pt, "MaxDevelopment", "Essa propriedade não pode ser mais desenvolvida.")
	message.SetString(pt, "CryptRequiresGraveyards", "Uma cripta precisa de quatro cemitérios antes.")
	message.SetString(pt, "AlreadyHasCrypt", "Essa propriedade já tem uma cripta.")
	message.SetString(pt, "NotDevelopable", "Essa propriedade não pode ser desenvolvida.")
	message.SetString(pt, "Unowned", "Ninguém é dono dessa propriedade.")
	message.SetString(pt, "UnknownTarget", "Esse jogador não está neste jogo.")
	message.SetString(pt, "InvalidTarget", "Você não pode escolher a si mesmo.")
	message.SetString(pt, "UnknownProperty", "Essa casa não pode ter dono.")
	message.SetString(pt, "NoRentDue", "Não há aluguel devido por essa propriedade.")
}

// ResolveLocale picks the best supported locale for an Accept-Language value.
func ResolveLocale(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supportedLocales[0]
	}
	_, idx, _ := localeMatcher.Match(tags...)
	return supportedLocales[idx]
}

// UserMessage renders the user-facing message for err in the given locale.
// Rule reasons take precedence over the generic code message.
func UserMessage(tag language.Tag, err error) string {
	p := message.NewPrinter(tag)
	e, ok := As(err)
	if !ok {
		return p.Sprintf(string(CodeUnknown))
	}
	if e.Reason != "" {
		if translated := p.Sprintf(e.Reason); translated != e.Reason {
			return translated
		}
	}
	return p.Sprintf(string(e.Code))
}
