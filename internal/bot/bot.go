package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"minemechanics/internal/domain"
	"minemechanics/internal/logger"
	"minemechanics/internal/service"
)

// Sender is the part of the Telegram API the handlers use. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type depositService interface {
	Bounds() (min, max float64)
	CreateDeposit(ctx context.Context, tgID int64, amountUSD float64, chain string) (*service.DepositInvoice, error)
}

type economicsService interface {
	QuoteMinerReward(price float64) float64
	MinMinerPrice() float64
	BuyMiner(ctx context.Context, tgID int64, price float64) (*domain.Miner, error)
	SellMiner(ctx context.Context, tgID, minerID int64, tier domain.SaleTier) (float64, error)
	GiftMiner(ctx context.Context, fromTgID, minerID, toTgID int64) error
	Swap(ctx context.Context, tgID int64, amount float64) (received, fee float64, err error)
	TopUpPacks(ctx context.Context, tgID int64, amount float64) error
	MyMiners(ctx context.Context, tgID int64) ([]domain.Miner, error)
	GetMiner(ctx context.Context, minerID int64) (*domain.Miner, error)
	PortfolioSummary(ctx context.Context, tgID int64) (totalValue, totalMonthly float64, err error)
}

type ledgerService interface {
	EnsureUser(ctx context.Context, tgID int64, username string) error
	GetUser(ctx context.Context, tgID int64) (*domain.User, error)
}

// Bot drives the per-user conversation state machine over Telegram updates.
type Bot struct {
	botAPI *tgbotapi.BotAPI
	api    Sender
	states StateStore

	deposits depositService
	econ     economicsService
	ledger   ledgerService
	notify   *Notifier

	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *slog.Logger
}

// New wires the conversation handlers onto an authorized Telegram API
// connection. The notifier is passed in because the webhook reconciler
// shares it.
func New(api *tgbotapi.BotAPI, states StateStore, deposits depositService, econ economicsService, ledger ledgerService, notify *Notifier) *Bot {
	log := logger.With("component", "bot")
	log.Info("bot authorized", "username", api.Self.UserName)

	return &Bot{
		botAPI:   api,
		api:      api,
		states:   states,
		deposits: deposits,
		econ:     econ,
		ledger:   ledger,
		notify:   notify,
		stopCh:   make(chan struct{}),
		log:      log,
	}
}

// Start runs the long-polling update loop. Each update is handled in its own
// goroutine: one slow provider call never blocks other users.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.botAPI.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				b.HandleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	b.botAPI.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

// HandleUpdate dispatches one normalized event: a callback tap or a message.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send failed", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) replyMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenu()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send failed", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) replyInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send failed", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		return
	}
	tgID := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}

	// Menu buttons start a flow and unconditionally replace whatever flow
	// was active before. Only unmatched free text falls through to the
	// current stage.
	if b.handleMenuButton(ctx, tgID, strings.ToUpper(text)) {
		return
	}

	st, ok, err := b.states.Get(ctx, tgID)
	if err != nil {
		b.log.Error("state load failed", "error", err, "tg_id", tgID)
		b.reply(tgID, "An error occurred. Try again later.")
		return
	}
	if !ok || st.Stage == StageIdle {
		b.replyMenu(tgID, "Main menu")
		return
	}

	b.handleStageInput(ctx, tgID, st, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, text string) {
	tgID := msg.From.ID
	switch {
	case strings.HasPrefix(text, "/start"):
		if err := b.ledger.EnsureUser(ctx, tgID, msg.From.UserName); err != nil {
			b.log.Error("ensure user failed", "error", err, "tg_id", tgID)
		}
		_ = b.states.Clear(ctx, tgID)
		b.replyMenu(tgID, "🎉 Welcome to MineMechanics — gamified mining simulator.")
		b.notify.NotifyAdmin(fmt.Sprintf("<b>New user</b>\nID: %d", tgID))
	case strings.HasPrefix(text, "/deposit"):
		b.replyInline(tgID, "Choose a coin to deposit:", depositPages[0])
	}
}

// handleMenuButton reports whether the text matched a menu button and was
// handled.
func (b *Bot) handleMenuButton(ctx context.Context, tgID int64, text string) bool {
	switch text {
	case btnGetMinem, "DEPOSIT":
		b.replyInline(tgID, "Choose a coin to deposit:", depositPages[0])
		return true

	case btnBuyMiner:
		_ = b.states.Set(ctx, tgID, State{Stage: StageAwaitMinerPrice})
		b.reply(tgID, fmt.Sprintf("Enter the cost of your miner in USD (min $%.0f):", b.econ.MinMinerPrice()))
		return true

	case btnBalance:
		b.showBalance(ctx, tgID)
		return true

	case btnMyMiners, "MY MINER":
		b.showMiners(ctx, tgID)
		return true

	case btnSellMiner:
		b.startMinerPick(ctx, tgID, "sellinit", "Choose miner to sell:", "No miners to sell.")
		return true

	case btnGiftMiner:
		b.startMinerPick(ctx, tgID, "giftinit", "Choose miner to gift:", "No miners to gift.")
		return true

	case btnSwap:
		_ = b.states.Set(ctx, tgID, State{Stage: StageAwaitSwapAmount})
		b.reply(tgID, "Enter amount of M² to swap to Minem:")
		return true

	case btnTopUpPacks:
		_ = b.states.Set(ctx, tgID, State{Stage: StageAwaitTopUpAmount})
		b.reply(tgID, "Enter amount in USD to buy packs (1 pack = $1):")
		return true

	case btnHowToStart:
		b.replyMenu(tgID, "HOW TO START:\n"+
			"1) GET MINEM → deposit via crypto\n"+
			"2) BUY MINER using Minem\n"+
			"3) Miner generates M² every month\n"+
			"4) Pay maintenance via TOP UP PACKS\n"+
			"5) SWAP M² back to Minem")
		return true
	}
	return false
}

// handleStageInput consumes free text while a stage is active. Invalid input
// re-prompts without changing the stage.
func (b *Bot) handleStageInput(ctx context.Context, tgID int64, st State, text string) {
	switch st.Stage {
	case StageAwaitDepositAmount:
		minDep, maxDep := b.deposits.Bounds()
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil || amount < minDep || amount > maxDep {
			b.reply(tgID, fmt.Sprintf("Enter a valid amount between %g and %g", minDep, maxDep))
			return
		}
		inv, err := b.deposits.CreateDeposit(ctx, tgID, amount, st.Coin)
		if err != nil {
			_ = b.states.Clear(ctx, tgID)
			b.log.Error("deposit create failed", "error", err, "tg_id", tgID)
			b.replyMenu(tgID, "Failed to create deposit. Try again later.")
			return
		}
		_ = b.states.Clear(ctx, tgID)
		b.reply(tgID, fmt.Sprintf("🔗 Open to pay: %s\nAfter payment you will get a confirmation here.", inv.PaymentURL))

	case StageAwaitMinerPrice:
		price, err := strconv.ParseFloat(text, 64)
		if err != nil || price < b.econ.MinMinerPrice() {
			b.reply(tgID, fmt.Sprintf("Enter a valid price >= %g", b.econ.MinMinerPrice()))
			return
		}
		reward := b.econ.QuoteMinerReward(price)
		_ = b.states.Set(ctx, tgID, State{Stage: StageConfirmMinerPurchase, Price: price, MonthlyReward: reward})
		b.replyInline(tgID,
			fmt.Sprintf("Miner Cost: $%g\nMonthly M² Reward (approx): %s\nConfirm purchase?", price, formatMoney(reward)),
			confirmPurchaseKeyboard())

	case StageAwaitGiftTarget:
		target, err := strconv.ParseInt(text, 10, 64)
		if err != nil || target <= 0 {
			b.reply(tgID, "Enter a valid recipient Telegram ID:")
			return
		}
		if err := b.econ.GiftMiner(ctx, tgID, st.MinerID, target); err != nil {
			_ = b.states.Clear(ctx, tgID)
			b.replyMenu(tgID, giftErrText(err))
			return
		}
		_ = b.states.Clear(ctx, tgID)
		b.replyMenu(tgID, fmt.Sprintf("Miner #%d gifted to %d.", st.MinerID, target))
		b.notify.NotifyAdmin(fmt.Sprintf("<b>Miner gifted</b>\nFrom: %d\nTo: %d\nMiner: %d", tgID, target, st.MinerID))

	case StageAwaitTopUpAmount:
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil || amount <= 0 {
			b.reply(tgID, "Invalid amount.")
			return
		}
		if err := b.econ.TopUpPacks(ctx, tgID, amount); err != nil {
			if isInsufficient(err) {
				b.reply(tgID, "Insufficient Minem balance.")
				return
			}
			_ = b.states.Clear(ctx, tgID)
			b.replyMenu(tgID, "Top up failed. Try again later.")
			return
		}
		_ = b.states.Clear(ctx, tgID)
		b.replyMenu(tgID, fmt.Sprintf("Packs purchased: $%g", amount))
		b.notify.NotifyAdmin(fmt.Sprintf("<b>Pack purchase</b>\nUser: %d\nAmount: $%g", tgID, amount))

	case StageAwaitSwapAmount:
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil || amount <= 0 {
			b.reply(tgID, "Invalid amount.")
			return
		}
		received, fee, err := b.econ.Swap(ctx, tgID, amount)
		if err != nil {
			if isInsufficient(err) {
				b.reply(tgID, "Insufficient M²")
				return
			}
			_ = b.states.Clear(ctx, tgID)
			b.replyMenu(tgID, "Swap failed. Try again later.")
			return
		}
		_ = b.states.Clear(ctx, tgID)
		b.replyMenu(tgID, fmt.Sprintf("Swapped %g M² -> %s Minem (fee %s).", amount, formatMoney(received), formatMoney(fee)))

	case StageConfirmMinerPurchase, StageChooseMinerToSell:
		// these stages complete via callback taps
		b.reply(tgID, "Use the buttons above, or tap Home.")

	case StageIdle:
		b.replyMenu(tgID, "Main menu")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	tgID := cq.From.ID
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.log.Debug("callback ack failed", "error", err)
		}
	}()

	switch {
	case strings.HasPrefix(data, "page_"):
		page, err := strconv.Atoi(strings.TrimPrefix(data, "page_"))
		if err != nil || page < 1 || page > len(depositPages) {
			return
		}
		if cq.Message != nil {
			edit := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID, depositPages[page-1])
			if _, err := b.api.Request(edit); err != nil {
				b.log.Warn("page edit failed", "error", err)
			}
		}

	case strings.HasPrefix(data, "coin_"):
		coin := strings.TrimPrefix(data, "coin_")
		_ = b.states.Set(ctx, tgID, State{Stage: StageAwaitDepositAmount, Coin: coin})
		minDep, _ := b.deposits.Bounds()
		b.reply(tgID, fmt.Sprintf("You selected %s. Enter amount in USD (min %g):", coin, minDep))

	case strings.HasPrefix(data, "viewminer_"):
		b.showMinerView(ctx, tgID, strings.TrimPrefix(data, "viewminer_"))

	case strings.HasPrefix(data, "sellinit_"):
		b.showMinerView(ctx, tgID, strings.TrimPrefix(data, "sellinit_"))

	case strings.HasPrefix(data, "sellopt_"):
		b.handleSell(ctx, tgID, data)

	case strings.HasPrefix(data, "giftinit_"):
		minerID, err := strconv.ParseInt(strings.TrimPrefix(data, "giftinit_"), 10, 64)
		if err != nil {
			return
		}
		_ = b.states.Set(ctx, tgID, State{Stage: StageAwaitGiftTarget, MinerID: minerID})
		b.reply(tgID, "Enter recipient Telegram ID to gift this miner:")

	case data == "confirm_buyminer":
		b.handleConfirmPurchase(ctx, tgID)

	case data == "menu_home":
		_ = b.states.Clear(ctx, tgID)
		b.replyMenu(tgID, "Main menu")
	}
}

func (b *Bot) handleConfirmPurchase(ctx context.Context, tgID int64) {
	st, ok, err := b.states.Get(ctx, tgID)
	if err != nil || !ok || st.Stage != StageConfirmMinerPurchase {
		b.reply(tgID, "No pending purchase.")
		return
	}

	m, err := b.econ.BuyMiner(ctx, tgID, st.Price)
	if err != nil {
		if isInsufficient(err) {
			b.reply(tgID, "Insufficient Minem")
			return
		}
		_ = b.states.Clear(ctx, tgID)
		b.log.Error("miner purchase failed", "error", err, "tg_id", tgID)
		b.replyMenu(tgID, "Purchase failed. Try again later.")
		return
	}

	_ = b.states.Clear(ctx, tgID)
	b.replyMenu(tgID, fmt.Sprintf("🎉 Miner purchased for $%g. Monthly M² approx: %s", m.PriceUSD, formatMoney(m.MonthlyRewardM2)))
	b.notify.NotifyAdmin(fmt.Sprintf("<b>Miner purchased</b>\nUser: %d\nPrice: $%g", tgID, m.PriceUSD))
}

func (b *Bot) handleSell(ctx context.Context, tgID int64, data string) {
	// sellopt_<tier>_<minerID>
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		return
	}
	tier, ok := domain.ParseSaleTier(parts[1])
	if !ok {
		return
	}
	minerID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return
	}

	payout, err := b.econ.SellMiner(ctx, tgID, minerID, tier)
	if err != nil {
		b.replyMenu(tgID, sellErrText(err))
		return
	}

	_ = b.states.Clear(ctx, tgID)
	b.replyMenu(tgID, fmt.Sprintf("Miner sold. You received %s Minem.", formatMoney(payout)))
	b.notify.NotifyAdmin(fmt.Sprintf("<b>Miner sold</b>\nUser: %d\nMiner: %d\nOption: %s\nPayout: %s", tgID, minerID, tier, formatMoney(payout)))
}

func (b *Bot) showBalance(ctx context.Context, tgID int64) {
	if err := b.ledger.EnsureUser(ctx, tgID, ""); err != nil {
		b.log.Error("ensure user failed", "error", err, "tg_id", tgID)
	}
	u, err := b.ledger.GetUser(ctx, tgID)
	if err != nil {
		b.replyMenu(tgID, "An error occurred. Try again later.")
		return
	}
	totalValue, totalMonthly, err := b.econ.PortfolioSummary(ctx, tgID)
	if err != nil {
		b.log.Warn("portfolio summary failed", "error", err, "tg_id", tgID)
	}
	b.replyMenu(tgID, fmt.Sprintf(
		"Balance:\nMinem: %s\nM²: %s\nPacks($): %s\nTotal miner value: %s\nMonthly M²: %s",
		formatMoney(u.BalanceMinem), formatMoney(u.BalanceM2), formatMoney(u.Packs),
		formatMoney(totalValue), formatMoney(totalMonthly)))
}

func (b *Bot) showMiners(ctx context.Context, tgID int64) {
	miners, err := b.econ.MyMiners(ctx, tgID)
	if err != nil {
		b.replyMenu(tgID, "An error occurred. Try again later.")
		return
	}
	if len(miners) == 0 {
		b.replyMenu(tgID, "You have no miners. Buy one from BUY MINER.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your miners:\n\n")
	for _, m := range miners {
		fmt.Fprintf(&sb, "#%d — $%s — %s M²/mo\n", m.ID, formatMoney(m.PriceUSD), formatMoney(m.MonthlyRewardM2))
	}
	b.replyInline(tgID, sb.String(), minerListKeyboard(miners, "viewminer"))
}

func (b *Bot) startMinerPick(ctx context.Context, tgID int64, prefix, prompt, empty string) {
	miners, err := b.econ.MyMiners(ctx, tgID)
	if err != nil {
		b.replyMenu(tgID, "An error occurred. Try again later.")
		return
	}
	if len(miners) == 0 {
		b.replyMenu(tgID, empty)
		return
	}
	_ = b.states.Set(ctx, tgID, State{Stage: StageChooseMinerToSell})
	b.replyInline(tgID, prompt, minerListKeyboard(miners, prefix))
}

func (b *Bot) showMinerView(ctx context.Context, tgID int64, rawID string) {
	minerID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}
	m, err := b.econ.GetMiner(ctx, minerID)
	if err != nil {
		b.reply(tgID, "Miner not found.")
		return
	}
	text := fmt.Sprintf("Miner #%d\nOwner: %d\nPrice: $%s\nMonthly reward: %s M²\nCreated: %s",
		m.ID, m.OwnerTgID, formatMoney(m.PriceUSD), formatMoney(m.MonthlyRewardM2), m.CreatedAt.Format("2006-01-02"))
	b.replyInline(tgID, text, minerViewKeyboard(m.ID))
}

func isInsufficient(err error) bool {
	return errors.Is(err, service.ErrInsufficientFunds)
}

func sellErrText(err error) string {
	switch {
	case err == nil:
		return ""
	case isNotOwner(err):
		return "You do not own this miner."
	case isMinerMissing(err):
		return "Miner not found."
	default:
		return "Sale failed. Try again later."
	}
}

func giftErrText(err error) string {
	switch {
	case err == nil:
		return ""
	case isNotOwner(err):
		return "You do not own this miner."
	case isMinerMissing(err):
		return "Miner not found."
	default:
		return "Gift failed. Try again later."
	}
}

func isNotOwner(err error) bool {
	return errors.Is(err, service.ErrNotOwner)
}

func isMinerMissing(err error) bool {
	return errors.Is(err, service.ErrMinerNotFound)
}
