package scheduler

import (
	"context"
	"fmt"
	"strings"

	"StockSentinel/internal/batch"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/pkg/errors"
)

const helpText = `คำสั่งที่ใช้ได้:
• /analyze SYMBOL  วิเคราะห์หุ้นทันที
• /watchlist  ดูรายการหุ้น
• /add SYMBOL  เพิ่มหุ้น
• /remove SYMBOL  ลบหุ้น
• /report  วิเคราะห์ทุกตัวในรายการ
• /alert HH:MM  ตั้งเวลาแจ้งเตือนรายวัน
• /alert off  ปิดการแจ้งเตือน
• /settings  ดูการตั้งค่า
• /set strategy|goal|risk|format VALUE  ตั้งค่าเริ่มต้น
• /set SYMBOL strategy|goal|risk|format VALUE  ตั้งค่าเฉพาะหุ้น (VALUE=default เพื่อล้าง)`

// HandleCommand processes a chat command from userID and returns a reply.
// Replies for batch runs are pushed as they complete, so the return is empty.
func (s *Scheduler) HandleCommand(ctx context.Context, userID, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	// "/analyze@sentinel_bot" in group chats
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "/analyze", "วิเคราะห์":
		if arg == "" {
			return "ใช้: /analyze SYMBOL"
		}
		return s.analyzeCommand(ctx, userID, arg)
	case "/watchlist", "รายการ":
		items, err := s.deps.Watchlist.ListItems(ctx, userID)
		if err != nil {
			s.log.Errorw("list watchlist failed", "user_id", userID, "error", err)
			return "เกิดข้อผิดพลาด กรุณาลองใหม่"
		}
		return notifier.FormatWatchlist(items)
	case "/add":
		if arg == "" {
			return "ใช้: /add SYMBOL"
		}
		return s.addCommand(ctx, userID, arg)
	case "/remove":
		if arg == "" {
			return "ใช้: /remove SYMBOL"
		}
		if err := s.deps.Watchlist.RemoveItem(ctx, userID, arg); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return fmt.Sprintf("ไม่พบ %s ในรายการ", model.NormalizeSymbol(arg))
			}
			s.log.Errorw("remove watchlist item failed", "user_id", userID, "error", err)
			return "เกิดข้อผิดพลาด กรุณาลองใหม่"
		}
		return fmt.Sprintf("ลบ %s แล้ว", model.NormalizeSymbol(arg))
	case "/report", "รายงาน":
		if msg, ok := s.acquire(ctx, userID); !ok {
			return msg
		}
		if _, err := s.RunForUser(ctx, userID, "command"); err != nil {
			s.log.Errorw("on-demand batch failed", "user_id", userID, "error", err)
			return "เกิดข้อผิดพลาด กรุณาลองใหม่"
		}
		return ""
	case "/alert":
		return s.alertCommand(ctx, userID, arg)
	case "/settings", "ตั้งค่า":
		return s.settingsCommand(ctx, userID)
	case "/set":
		return s.setCommand(ctx, userID, fields[1:])
	default:
		return helpText
	}
}

func (s *Scheduler) analyzeCommand(ctx context.Context, userID, raw string) string {
	if msg, ok := s.acquire(ctx, userID); !ok {
		return msg
	}
	sym, err := s.resolve(ctx, raw)
	if err != nil {
		return fmt.Sprintf("ไม่พบหุ้น %s", model.NormalizeSymbol(raw))
	}
	defaults, err := s.deps.Watchlist.GetUserDefaults(ctx, userID)
	if err != nil {
		s.log.Warnw("user defaults unavailable", "user_id", userID, "error", err)
	}
	settings := model.WatchlistItem{Symbol: sym}.Resolve(defaults)

	res := s.deps.Analyzer.Analyze(ctx, sym, settings)
	if err := s.deps.Recorder.RecordAnalysis(ctx, batch.NewRunID(), res); err != nil {
		s.log.Errorw("record analysis failed", "symbol", sym, "error", err)
	}
	return notifier.FormatResult(res, settings.ReportFormat)
}

func (s *Scheduler) addCommand(ctx context.Context, userID, raw string) string {
	sym, err := s.resolve(ctx, raw)
	if err != nil {
		return fmt.Sprintf("ไม่พบหุ้น %s", model.NormalizeSymbol(raw))
	}
	if err := s.deps.Watchlist.AddItem(ctx, model.WatchlistItem{UserID: userID, Symbol: sym}); err != nil {
		switch {
		case errors.Is(err, errors.ErrAlreadyExists):
			return fmt.Sprintf("%s อยู่ในรายการแล้ว", sym)
		case errors.Is(err, errors.ErrLimitReached):
			return fmt.Sprintf("รายการเต็มแล้ว (สูงสุด %d หุ้น) กรุณาลบบางตัวก่อน", model.MaxWatchlistItems)
		}
		s.log.Errorw("add watchlist item failed", "user_id", userID, "error", err)
		return "เกิดข้อผิดพลาด กรุณาลองใหม่"
	}
	return fmt.Sprintf("เพิ่ม %s แล้ว", sym)
}

const setUsage = "ใช้: /set strategy|goal|risk|format VALUE หรือ /set SYMBOL strategy|goal|risk|format VALUE"

// setCommand writes a user default (two args) or a per-item override (three args).
func (s *Scheduler) setCommand(ctx context.Context, userID string, args []string) string {
	var symbol, rawField, rawValue string
	switch len(args) {
	case 2:
		rawField, rawValue = args[0], args[1]
	case 3:
		symbol, rawField, rawValue = model.NormalizeSymbol(args[0]), args[1], args[2]
	default:
		return setUsage
	}
	field, ok := model.ParseSettingField(rawField)
	if !ok {
		return setUsage
	}
	value := model.NormalizeSettingValue(rawValue)
	if !model.ValidSettingValue(field, value) {
		return "รูปแบบรายงานต้องเป็น summary หรือ full"
	}
	shown := value
	if shown == "" {
		shown = "ค่าเริ่มต้น"
	}

	if symbol == "" {
		defaults, err := s.deps.Watchlist.GetUserDefaults(ctx, userID)
		if err != nil {
			s.log.Errorw("load user defaults failed", "user_id", userID, "error", err)
			return "เกิดข้อผิดพลาด กรุณาลองใหม่"
		}
		defaults.UserID = userID
		defaults.Set(field, value)
		if err := s.deps.Watchlist.SetUserDefaults(ctx, defaults); err != nil {
			s.log.Errorw("save user defaults failed", "user_id", userID, "error", err)
			return "เกิดข้อผิดพลาด กรุณาลองใหม่"
		}
		return fmt.Sprintf("✓ ค่าเริ่มต้น %s = %s", field, shown)
	}

	var override *string
	if value != "" {
		override = &value
	}
	if err := s.deps.Watchlist.SetItemOverride(ctx, userID, symbol, field, override); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return fmt.Sprintf("ไม่พบ %s ในรายการ", symbol)
		}
		s.log.Errorw("save item override failed", "user_id", userID, "symbol", symbol, "error", err)
		return "เกิดข้อผิดพลาด กรุณาลองใหม่"
	}
	return fmt.Sprintf("✓ %s %s = %s", symbol, field, shown)
}

func (s *Scheduler) settingsCommand(ctx context.Context, userID string) string {
	defaults, err := s.deps.Watchlist.GetUserDefaults(ctx, userID)
	if err != nil {
		s.log.Errorw("load user defaults failed", "user_id", userID, "error", err)
		return "เกิดข้อผิดพลาด กรุณาลองใหม่"
	}
	items, err := s.deps.Watchlist.ListItems(ctx, userID)
	if err != nil {
		s.log.Errorw("list watchlist failed", "user_id", userID, "error", err)
		return "เกิดข้อผิดพลาด กรุณาลองใหม่"
	}
	return notifier.FormatSettings(defaults, items)
}

func (s *Scheduler) alertCommand(ctx context.Context, userID, arg string) string {
	if strings.EqualFold(arg, "off") {
		sch, err := s.deps.Schedules.Get(ctx, userID)
		if err != nil {
			return "ยังไม่ได้ตั้งเวลาแจ้งเตือน"
		}
		sch.Active = false
		if err := s.deps.Schedules.Upsert(ctx, sch); err != nil {
			s.log.Errorw("disable schedule failed", "user_id", userID, "error", err)
			return "เกิดข้อผิดพลาด กรุณาลองใหม่"
		}
		return "ปิดการแจ้งเตือนแล้ว"
	}

	at, err := SnapAlertTime(arg)
	if err != nil {
		return "ใช้: /alert HH:MM เช่น /alert 08:30"
	}
	if err := s.deps.Schedules.Upsert(ctx, model.Schedule{UserID: userID, AlertTime: at, Active: true}); err != nil {
		s.log.Errorw("save schedule failed", "user_id", userID, "error", err)
		return "เกิดข้อผิดพลาด กรุณาลองใหม่"
	}
	return fmt.Sprintf("ตั้งเวลาแจ้งเตือนทุกวัน %s แล้ว", at)
}

// resolve maps raw input to a symbol. Without a resolver the input is only normalized.
func (s *Scheduler) resolve(ctx context.Context, raw string) (string, error) {
	if s.deps.Resolver == nil {
		return model.NormalizeSymbol(raw), nil
	}
	q, err := s.deps.Resolver.Resolve(ctx, raw)
	if err != nil {
		return "", err
	}
	return q.Symbol, nil
}

func (s *Scheduler) acquire(ctx context.Context, userID string) (string, bool) {
	if s.deps.Cooldown == nil {
		return "", true
	}
	if err := s.deps.Cooldown.Acquire(ctx, "report:"+userID, s.opts.CooldownTTL); err != nil {
		if errors.Is(err, errors.ErrCooldown) {
			return fmt.Sprintf("กรุณารอ %d วินาทีก่อนขอรายงานใหม่", int(s.opts.CooldownTTL.Seconds())), false
		}
		// a broken cooldown backend must not block users
		s.log.Warnw("cooldown check failed", "user_id", userID, "error", err)
	}
	return "", true
}
