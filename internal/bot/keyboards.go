package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"minemechanics/internal/domain"
)

// Main menu button labels. Free text equal to one of these starts (and
// replaces) a flow.
const (
	btnGetMinem   = "GET MINEM"
	btnBuyMiner   = "BUY MINER"
	btnBalance    = "BALANCE"
	btnMyMiners   = "MY MINERS"
	btnSellMiner  = "SELL MINER"
	btnGiftMiner  = "GIFT MINER"
	btnSwap       = "SWAP"
	btnTopUpPacks = "TOP UP PACKS"
	btnHowToStart = "HOW TO START"
)

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGetMinem),
			tgbotapi.NewKeyboardButton(btnBuyMiner),
			tgbotapi.NewKeyboardButton(btnBalance),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMyMiners),
			tgbotapi.NewKeyboardButton(btnSellMiner),
			tgbotapi.NewKeyboardButton(btnGiftMiner),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSwap),
			tgbotapi.NewKeyboardButton(btnTopUpPacks),
			tgbotapi.NewKeyboardButton(btnHowToStart),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// depositPages are the two pages of deposit chain choices.
var depositPages = []tgbotapi.InlineKeyboardMarkup{
	tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("BTC", "coin_BTC"),
			tgbotapi.NewInlineKeyboardButtonData("ETH", "coin_ETH"),
			tgbotapi.NewInlineKeyboardButtonData("BNB", "coin_BNB"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("USDT-TRC", "coin_USDT_TRC"),
			tgbotapi.NewInlineKeyboardButtonData("USDT-ERC", "coin_USDT_ERC"),
			tgbotapi.NewInlineKeyboardButtonData("SOL", "coin_SOL"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Next ➡️", "page_2"),
		),
	),
	tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("TRX", "coin_TRX"),
			tgbotapi.NewInlineKeyboardButtonData("DOGE", "coin_DOGE"),
			tgbotapi.NewInlineKeyboardButtonData("PEPE", "coin_PEPE"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("SHIBA", "coin_SHIBA"),
			tgbotapi.NewInlineKeyboardButtonData("BONK", "coin_BONK"),
			tgbotapi.NewInlineKeyboardButtonData("Back ⬅️", "page_1"),
		),
	),
}

func minerViewKeyboard(minerID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sell (85%)", fmt.Sprintf("sellopt_monthly_%d", minerID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sell (weekly 60%)", fmt.Sprintf("sellopt_weekly_%d", minerID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sell (instant 30%)", fmt.Sprintf("sellopt_instant_%d", minerID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Gift", fmt.Sprintf("giftinit_%d", minerID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Home", "menu_home"),
		),
	)
}

func confirmPurchaseKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", "confirm_buyminer"),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "menu_home"),
		),
	)
}

// minerListKeyboard builds one button per miner with the given callback
// prefix, plus a Home row.
func minerListKeyboard(miners []domain.Miner, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range miners {
		label := fmt.Sprintf("#%d ($%.2f)", m.ID, m.PriceUSD)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s_%d", prefix, m.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Home", "menu_home"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
