package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/bosswatch/internal/admins"
	"github.com/albapepper/bosswatch/internal/boss"
)

const helpText = `🤖 *Bot commands*

📋 */list*
Bosses with their next spawn time.
Format: ` + "`HH:MM | ID | name | chance% | resp 10h | first 6h`" + `

🔄 */restart [time]*
Admins: set the server restart time.
• ` + "`/restart`" + ` restart now
• ` + "`/restart 14:30`" + ` next 14:30
• ` + "`/restart 01.02.2026 14:30`" + ` exact date

⚔️ */kill <ID> [time]*
Admins: record a kill.
• ` + "`/kill 22`" + ` killed now
• ` + "`/kill 22 17:30`" + ` today or yesterday
• ` + "`/kill 22 02.02.2026 13:59`" + ` exact time

⚙️ */settings*
Admins: management commands.
`

const settingsText = `⚙️ *Settings (admins only)*

*1) Add a boss*
` + "`/boss_add Name 50% 12h 0h`" + `
• 12h = respawn after /kill (> 0)
• 0h = spawn after /restart (stored as 1 min)

*2) Delete a boss*
` + "`/boss_del 48`" + `

*3) Edit a boss*
` + "`/boss_edit 48 Name 50% 12h 0h`" + `

*4) Alert lead times*
` + "`/notifications 15 5 1`" + `

*5) Admins*
` + "`/admin_add @username`" + `
` + "`/admin_del @username`" + `
` + "`/admin_list`" + `

*6) Backup*
` + "`/backup`" + ` download a JSON snapshot
📎 Send a .json snapshot to restore it

⚠️ *Timers:*
• /restart clears every kill, spawns count from first
• /kill records the time, respawn counts from resp
• Durations: ` + "`10h`, `30m`, `1d`, `2h30m`"

func (b *Bot) cmdHelp(_ context.Context, m *tgbotapi.Message, _ []string) {
	b.replyMarkdown(m.Chat.ID, helpText+"\n💡 _Times are in "+b.svc.Zone().Location().String()+"_")
}

func (b *Bot) cmdSettings(_ context.Context, m *tgbotapi.Message, _ []string) {
	b.replyMarkdown(m.Chat.ID, settingsText)
}

func (b *Bot) cmdList(ctx context.Context, m *tgbotapi.Message, _ []string) {
	entries, err := b.svc.List(ctx)
	if err != nil {
		b.logger.Error("List failed", "error", err)
		b.reply(m.Chat.ID, "❌ Failed to load the list.")
		return
	}
	b.reply(m.Chat.ID, b.svc.FormatList(entries))
}

func (b *Bot) cmdRestart(ctx context.Context, m *tgbotapi.Message, args []string) {
	at, err := b.svc.Zone().ParseRestart(strings.Join(args, " "), b.svc.Now())
	if err != nil {
		b.reply(m.Chat.ID, "Usage: /restart [DD.MM.YYYY HH:MM] or /restart HH:MM or /restart now")
		return
	}
	if err := b.svc.Restart(ctx, at); err != nil {
		b.logger.Error("Restart failed", "error", err)
		b.reply(m.Chat.ID, "❌ Failed to record the restart.")
		return
	}

	list := ""
	if entries, err := b.svc.List(ctx); err == nil {
		list = "\n\n" + b.svc.FormatList(entries)
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Restart time set: %s\n🔄 All boss timers reset%s",
		b.svc.Zone().FormatFull(at), list))

	if _, err := b.announcer.AnnounceRestart(ctx, at, b.cfg.RestartAnnounceWithin); err != nil {
		b.logger.Error("Restart announcement failed", "error", err)
	}
}

func (b *Bot) cmdKill(ctx context.Context, m *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(m.Chat.ID, "Usage:\n/kill <ID> killed now\n/kill <ID> HH:MM today or yesterday\n/kill <ID> DD.MM.YYYY HH:MM exact time")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(m.Chat.ID, "Boss ID must be a number.")
		return
	}

	at := b.svc.Now()
	if len(args) > 1 {
		if at, err = b.svc.Zone().ParseKill(strings.Join(args[1:], " "), at); err != nil {
			b.reply(m.Chat.ID, "Bad time. Examples: 14:30 or 01.02.2026 14:30")
			return
		}
	}

	bs, next, err := b.svc.Kill(ctx, id, at, "")
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Kill of [%d] %s recorded: %s\nNext spawn: %s",
		bs.ID, bs.Name, b.svc.Zone().FormatFull(at), b.svc.Zone().FormatShort(next)))
}

// cmdTest sends three sample alerts with kill buttons to the caller only.
func (b *Bot) cmdTest(ctx context.Context, m *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(m.Chat.ID, "Usage: /test <bossId>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(m.Chat.ID, "Boss ID must be a number.")
		return
	}
	bs, err := b.svc.Store().GetBoss(ctx, id)
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	now := b.svc.Now()
	for i := 1; i <= 3; i++ {
		at := now.Add(time.Duration(i) * time.Minute)
		msg := tgbotapi.NewMessage(m.Chat.ID, fmt.Sprintf("%s | %d | %s | %d%%",
			at.Format("15:04"), bs.ID, bs.Name, bs.ChancePercent))
		msg.ReplyMarkup = killButton(bs.ID)
		b.send(msg)
	}
}

func (b *Bot) cmdBossAdd(ctx context.Context, m *tgbotapi.Message, args []string) {
	if len(args) < 3 {
		b.replyMarkdown(m.Chat.ID, "Usage:\n`/boss_add <Name> <Chance%> <resp> [first]`\n\n"+
			"• `resp` respawn after a kill (> 0)\n• `first` spawn after restart (0h = 1m)\n\n"+
			"Examples:\n`/boss_add Test 50% 12h 0h`\n`/boss_add Test 50% 6h 2h`")
		return
	}
	in, err := parseBossArgs(args)
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	bs, err := b.svc.AddBoss(ctx, in)
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Boss added:\nID %d | %s | %d%%\nRespawn after kill: %s\nSpawn after restart: %s",
		bs.ID, bs.Name, bs.ChancePercent, boss.FormatInterval(bs.RespawnMinutes), boss.FormatFirst(bs.FirstSpawnMinutes)))
}

func (b *Bot) cmdBossEdit(ctx context.Context, m *tgbotapi.Message, args []string) {
	if len(args) < 4 {
		b.reply(m.Chat.ID, "Usage: /boss_edit <id> <Name> <Chance%> <resp> [first]\nExample: /boss_edit 48 Cabrio 50% 12h 5h")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(m.Chat.ID, "Boss ID must be a number.")
		return
	}
	in, err := parseBossArgs(args[1:])
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	bs, err := b.svc.EditBoss(ctx, id, in)
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Boss [%d] updated:\n%s | %d%%\nRespawn after kill: %s\nSpawn after restart: %s",
		bs.ID, bs.Name, bs.ChancePercent, boss.FormatInterval(bs.RespawnMinutes), boss.FormatFirst(bs.FirstSpawnMinutes)))
}

func (b *Bot) cmdBossDel(ctx context.Context, m *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(m.Chat.ID, "Usage: /boss_del <id>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(m.Chat.ID, "Boss ID must be a number.")
		return
	}
	bs, err := b.svc.DeleteBoss(ctx, id)
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Boss [%d] %s deleted.", bs.ID, bs.Name))
}

func (b *Bot) cmdNotifications(ctx context.Context, m *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(m.Chat.ID, "Usage: /notifications <minutes...>\nExample: /notifications 20 15 5 1")
		return
	}
	leads := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			b.reply(m.Chat.ID, "All values must be numbers.")
			return
		}
		leads = append(leads, n)
	}
	norm, err := b.svc.SetNotificationLeads(ctx, leads)
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf("✅ Alerts set: %s minutes before spawn.", strings.ReplaceAll(boss.FormatLeads(norm), ",", ", ")))
}

func (b *Bot) cmdAdminAdd(_ context.Context, m *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(m.Chat.ID, "Usage: /admin_add @username")
		return
	}
	switch err := b.admins.Add(args[0]); {
	case errors.Is(err, admins.ErrExists):
		b.reply(m.Chat.ID, args[0]+" is already an admin.")
	case err != nil:
		b.replyError(m.Chat.ID, err)
	default:
		b.logger.Info("Admin added", "entry", args[0], "by", m.From.ID)
		b.reply(m.Chat.ID, "✅ "+args[0]+" added to admins.")
	}
}

func (b *Bot) cmdAdminDel(_ context.Context, m *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(m.Chat.ID, "Usage: /admin_del @username")
		return
	}
	switch err := b.admins.Remove(args[0]); {
	case errors.Is(err, admins.ErrNotAdmin):
		b.reply(m.Chat.ID, args[0]+" is not an admin.")
	case err != nil:
		b.replyError(m.Chat.ID, err)
	default:
		b.logger.Info("Admin removed", "entry", args[0], "by", m.From.ID)
		b.reply(m.Chat.ID, "✅ "+args[0]+" removed from admins.")
	}
}

func (b *Bot) cmdAdminList(_ context.Context, m *tgbotapi.Message, _ []string) {
	list, err := b.admins.List()
	if err != nil {
		b.replyError(m.Chat.ID, err)
		return
	}
	if len(list) == 0 {
		b.reply(m.Chat.ID, "The admin list is empty.")
		return
	}
	lines := make([]string, len(list))
	for i, a := range list {
		lines[i] = "• " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, a)
	}
	b.replyMarkdown(m.Chat.ID, "👮 *Admins:*\n\n"+strings.Join(lines, "\n"))
}

// parseBossArgs reads "<name> <chance%> <resp> [first]".
func parseBossArgs(args []string) (boss.Input, error) {
	chance, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
	if err != nil {
		return boss.Input{}, boss.ErrInvalidChance
	}
	respawn, err := boss.ParseDuration(args[2])
	if err != nil {
		return boss.Input{}, err
	}
	in := boss.Input{Name: args[0], ChancePercent: chance, RespawnMinutes: respawn}
	if len(args) > 3 {
		first, err := boss.ParseDuration(args[3])
		if err != nil {
			return boss.Input{}, err
		}
		in.FirstSpawnMinutes = &first
	}
	return in.Validate()
}

// replyError turns domain errors into short chat replies.
func (b *Bot) replyError(chatID int64, err error) {
	var text string
	switch {
	case errors.Is(err, boss.ErrNotFound):
		text = "Boss not found."
	case errors.Is(err, boss.ErrDuplicateName):
		text = "A boss with that name already exists."
	case errors.Is(err, boss.ErrInvalidInterval):
		text = "❌ Respawn after kill must be > 0."
	case errors.Is(err, boss.ErrInvalidChance):
		text = "❌ Chance must be a number between 0 and 100."
	case errors.Is(err, boss.ErrInvalidFirst), errors.Is(err, boss.ErrBadDuration), errors.Is(err, boss.ErrNoDuration):
		text = "❌ Bad duration. Formats: 10h, 30m, 1d, 2h30m"
	case errors.Is(err, boss.ErrInvalidName):
		text = "❌ Name must not be empty."
	case errors.Is(err, boss.ErrInvalidLeads):
		text = "❌ Lead times must be positive numbers."
	case errors.Is(err, admins.ErrInvalid):
		text = "❌ Use a numeric user id or @username."
	default:
		b.logger.Error("Command failed", "chat_id", chatID, "error", err)
		text = "❌ Error: " + err.Error()
	}
	b.reply(chatID, text)
}
