package web

// Single-page dashboard: active currency, sample conversions and the live visitor feed.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>sitepulse</title>
  <link href="https://fonts.googleapis.com/css2?family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root { --bg:#ffffff; --ink:#111111; --ink-soft:#9c9c9c; --panel:#f6f6f6; }
    * { box-sizing:border-box; }
    body {
      margin:0;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      max-width:1100px;
      margin:0 auto;
      display:grid;
      grid-template-columns:1fr 1fr;
      gap:1.5rem;
    }
    .panel {
      background:var(--panel);
      border:3px solid var(--ink);
      padding:1.25rem;
      box-shadow:8px 8px 0 rgba(0,0,0,.15);
    }
    h1 { grid-column:1 / -1; margin:0; font-size:1.4rem; letter-spacing:.1em; }
    h2 { margin-top:0; font-size:1rem; text-transform:uppercase; }
    table { width:100%; border-collapse:collapse; }
    td { padding:.25rem 0; border-bottom:1px dashed var(--ink-soft); }
    td.num { text-align:right; }
    .muted { color:var(--ink-soft); font-size:.8rem; }
    button, select { font-family:inherit; border:2px solid var(--ink); background:var(--bg); padding:.25rem .75rem; }
  </style>
</head>
<body>
<div id="app">
  <h1>SITEPULSE</h1>

  <div class="panel">
    <h2>Currency</h2>
    <select id="country"></select>
    <button id="refresh-rates">Refresh rates</button>
    <p id="currency-line"></p>
    <p class="muted" id="rate-status"></p>
    <table id="prices"></table>
  </div>

  <div class="panel">
    <h2>Visitors</h2>
    <button id="toggle">Pause</button>
    <button id="refresh-visitors">Refresh</button>
    <p id="visitor-total"></p>
    <table id="top"></table>
    <h2>Regions</h2>
    <table id="regions"></table>
  </div>
</div>
<script>
const samples = ['300-1200', '1500-4000', '49', '99'];

async function post(url) {
  const res = await fetch(url, { method: 'POST' });
  return res.json();
}

function rows(el, items) {
  el.innerHTML = items.map(([k, v]) => '<tr><td>' + k + '</td><td class="num">' + v + '</td></tr>').join('');
}

async function renderPrices() {
  const out = [];
  for (const amount of samples) {
    const q = new URLSearchParams({ amount, range: String(amount.includes('-')), code: 'true' });
    const res = await fetch('/convert?' + q).then(r => r.json());
    out.push(['$' + amount, res.result]);
  }
  rows(document.getElementById('prices'), out);
}

function renderCurrency(state) {
  const d = state.currency;
  document.getElementById('currency-line').textContent =
    (state.country || state.key) + ': ' + d.code + ' ' + d.symbol + ' @ ' + d.rate;
  document.getElementById('rate-status').textContent =
    d.is_live ? 'live rate, updated ' + new Date(d.last_updated).toLocaleString() : 'fallback rate';
  document.getElementById('country').value = state.country || '';
  renderPrices();
}

function renderVisitors(s) {
  document.getElementById('visitor-total').textContent =
    s.total_visitors + ' visitors from ' + s.total_countries + ' countries';
  rows(document.getElementById('top'), s.active_countries.slice(0, 5).map(e => [e.country, e.visitors]));
  const regions = Object.entries(s.regional_stats).sort((a, b) => b[1] - a[1] || a[0].localeCompare(b[0]));
  rows(document.getElementById('regions'), regions);
}

async function init() {
  const cur = await fetch('/currency').then(r => r.json());
  const select = document.getElementById('country');
  select.innerHTML = cur.countries.map(c => '<option>' + c + '</option>').join('');
  select.onchange = () => post('/currency/select?country=' + encodeURIComponent(select.value));
  renderCurrency(cur.state);

  const vis = await fetch('/visitors').then(r => r.json());
  document.getElementById('toggle').textContent = vis.live ? 'Pause' : 'Resume';
  renderVisitors(vis.snapshot);

  document.getElementById('refresh-rates').onclick = () => post('/currency/refresh');
  document.getElementById('refresh-visitors').onclick = () => post('/visitors/refresh');
  document.getElementById('toggle').onclick = async (e) => {
    const res = await post('/visitors/toggle');
    e.target.textContent = res.live ? 'Pause' : 'Resume';
  };

  new EventSource('/currency/stream').addEventListener('currency', e => renderCurrency(JSON.parse(e.data)));
  new EventSource('/visitors/stream').addEventListener('visitors', e => renderVisitors(JSON.parse(e.data)));
}

init();
</script>
</body>
</html>
`
